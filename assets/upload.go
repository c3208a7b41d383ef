package assets

import (
	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	"github.com/vkngwrapper/core/v3/core1_0"

	"github.com/vkngwrapper/pbr/renderer"
)

// GPUMesh holds a mesh's vertex and index buffers in device-local memory.
type GPUMesh struct {
	Vertices   *renderer.Buffer
	Indices    *renderer.Buffer
	IndexCount int
}

// Upload copies the mesh into device-local vertex and index buffers through
// host-visible staging buffers, one blocking submit per buffer.
func Upload(device *renderer.Device, mesh *Mesh, logger logrus.FieldLogger) (*GPUMesh, error) {
	vertices, err := mesh.VertexBytes()
	if err != nil {
		return nil, errors.Wrap(err, "encode vertices")
	}
	indices, err := mesh.IndexBytes()
	if err != nil {
		return nil, errors.Wrap(err, "encode indices")
	}

	gpuMesh := &GPUMesh{IndexCount: len(mesh.Indices)}
	gpuMesh.Vertices, err = uploadBuffer(device, core1_0.BufferUsageVertexBuffer, vertices)
	if err != nil {
		return nil, errors.Wrap(err, "upload vertices")
	}
	gpuMesh.Indices, err = uploadBuffer(device, core1_0.BufferUsageIndexBuffer, indices)
	if err != nil {
		gpuMesh.Destroy()
		return nil, errors.Wrap(err, "upload indices")
	}

	logger.WithFields(logrus.Fields{
		"vertices": len(mesh.Vertices),
		"indices":  len(mesh.Indices),
		"center":   mesh.Center(),
	}).Info("mesh uploaded")
	return gpuMesh, nil
}

func uploadBuffer(device *renderer.Device, usage core1_0.BufferUsageFlags, data []byte) (*renderer.Buffer, error) {
	staging, err := device.CreateBuffer(core1_0.BufferUsageTransferSrc, core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent, len(data), data)
	if err != nil {
		return nil, err
	}
	defer staging.Destroy()

	buffer, err := device.CreateBuffer(core1_0.BufferUsageTransferDst|usage, core1_0.MemoryPropertyDeviceLocal, len(data), nil)
	if err != nil {
		return nil, err
	}

	cmd, err := device.CreateCommandBuffer(core1_0.CommandBufferLevelPrimary, true)
	if err != nil {
		buffer.Destroy()
		return nil, err
	}

	err = device.Driver.CmdCopyBuffer(cmd, staging.Handle, buffer.Handle, len(data))
	if err != nil {
		device.Driver.FreeCommandBuffers(cmd)
		buffer.Destroy()
		return nil, err
	}

	err = device.SubmitAndWait(cmd, device.GraphicsQueue, true)
	if err != nil {
		buffer.Destroy()
		return nil, err
	}

	return buffer, nil
}

func (m *GPUMesh) Destroy() {
	if m == nil {
		return
	}
	m.Vertices.Destroy()
	m.Indices.Destroy()
}
