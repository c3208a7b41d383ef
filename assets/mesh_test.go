package assets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

const quadOBJ = `o quad
v -1 -1 0
v 1 -1 0
v 1 1 0
v -1 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
vn 0 0 1
f 1/1/1 2/2/1 3/3/1 4/4/1
`

func TestDecodeMesh(t *testing.T) {
	mesh, err := DecodeMesh(strings.NewReader(quadOBJ), strings.NewReader(""))
	if err != nil {
		t.Fatalf("DecodeMesh: %+v", err)
	}

	if len(mesh.Vertices) != 4 {
		t.Errorf("got %d vertices, want 4 after merging", len(mesh.Vertices))
	}
	wantIndices := []uint32{0, 1, 2, 0, 2, 3}
	if len(mesh.Indices) != len(wantIndices) {
		t.Fatalf("indices = %v, want %v", mesh.Indices, wantIndices)
	}
	for i := range wantIndices {
		if mesh.Indices[i] != wantIndices[i] {
			t.Fatalf("indices = %v, want %v", mesh.Indices, wantIndices)
		}
	}

	third := mesh.Vertices[2]
	if !third.Position.ApproxEqual(mgl32.Vec3{1, 1, 0}) {
		t.Errorf("position = %v", third.Position)
	}
	if !third.TexCoord.ApproxEqual(mgl32.Vec2{1, 0}) {
		t.Errorf("texcoord = %v, want v flipped", third.TexCoord)
	}
	if !third.Normal.ApproxEqual(mgl32.Vec3{0, 0, 1}) {
		t.Errorf("normal = %v", third.Normal)
	}

	if !mesh.Min.ApproxEqual(mgl32.Vec3{-1, -1, 0}) || !mesh.Max.ApproxEqual(mgl32.Vec3{1, 1, 0}) {
		t.Errorf("bounds = %v..%v", mesh.Min, mesh.Max)
	}
	if !mesh.Center().ApproxEqual(mgl32.Vec3{}) {
		t.Errorf("center = %v", mesh.Center())
	}
}

func TestDecodeMeshWithoutFaces(t *testing.T) {
	_, err := DecodeMesh(strings.NewReader("o empty\nv 0 0 0\n"), strings.NewReader(""))
	if err == nil {
		t.Error("mesh without faces accepted")
	}
}

func TestMeshBytes(t *testing.T) {
	mesh, err := DecodeMesh(strings.NewReader(quadOBJ), strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}

	vertices, err := mesh.VertexBytes()
	if err != nil {
		t.Fatal(err)
	}
	if len(vertices) != 4*32 {
		t.Errorf("vertex bytes = %d, want %d", len(vertices), 4*32)
	}

	indices, err := mesh.IndexBytes()
	if err != nil {
		t.Fatal(err)
	}
	if len(indices) != 6*4 {
		t.Errorf("index bytes = %d, want %d", len(indices), 6*4)
	}
}

func TestLoadMesh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quad.obj")
	if err := os.WriteFile(path, []byte(quadOBJ), 0o600); err != nil {
		t.Fatal(err)
	}

	mesh, err := LoadMesh(path)
	if err != nil {
		t.Fatalf("LoadMesh: %+v", err)
	}
	if len(mesh.Indices) != 6 {
		t.Errorf("got %d indices", len(mesh.Indices))
	}

	if _, err := LoadMesh(filepath.Join(t.TempDir(), "missing.obj")); err == nil {
		t.Error("missing file loaded")
	}
}
