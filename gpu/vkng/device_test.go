package vkng

import (
	"testing"

	"github.com/vkngwrapper/core/v3/core1_0"
)

func TestWholeRange(t *testing.T) {
	var memory core1_0.DeviceMemory
	r := wholeRange(memory)

	if r.Offset != 0 {
		t.Errorf("Offset = %d, want 0", r.Offset)
	}
	// Converted to VkDeviceSize this is VK_WHOLE_SIZE.
	if uint64(r.Size) != ^uint64(0) {
		t.Errorf("Size = %d, want the whole mapped range", r.Size)
	}
}
