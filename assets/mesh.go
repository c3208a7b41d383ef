// Package assets loads meshes from disk and uploads them to device-local
// buffers.
package assets

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/g3n/engine/loader/obj"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/core/v3/common"
)

type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	TexCoord mgl32.Vec2
}

// Mesh is an indexed triangle list.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
	Min, Max mgl32.Vec3
}

type vertexKey struct {
	position, uv, normal int
}

// LoadMesh reads an OBJ file. A .mtl file next to it with the same base name
// is read too when present.
func LoadMesh(path string) (*Mesh, error) {
	meshFile, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open mesh")
	}
	defer meshFile.Close()

	var matReader io.Reader = strings.NewReader("")
	matFile, err := os.Open(strings.TrimSuffix(path, filepath.Ext(path)) + ".mtl")
	if err == nil {
		defer matFile.Close()
		matReader = matFile
	}

	mesh, err := DecodeMesh(meshFile, matReader)
	return mesh, errors.Wrapf(err, "decode %s", path)
}

// DecodeMesh triangulates every face of every object and merges vertices
// that share position, texture and normal indices.
func DecodeMesh(meshReader, matReader io.Reader) (*Mesh, error) {
	decoder, err := obj.DecodeReader(meshReader, matReader)
	if err != nil {
		return nil, err
	}

	mesh := &Mesh{}
	unique := make(map[vertexKey]uint32)

	for _, decoded := range decoder.Objects {
		for _, face := range decoded.Faces {
			for i := 2; i < len(face.Vertices); i++ {
				mesh.addVertex(decoder, unique, face, 0)
				mesh.addVertex(decoder, unique, face, i-1)
				mesh.addVertex(decoder, unique, face, i)
			}
		}
	}

	if len(mesh.Indices) == 0 {
		return nil, errors.New("mesh has no faces")
	}
	mesh.computeBounds()
	return mesh, nil
}

func faceIndex(indices []int, i int) int {
	if i < len(indices) {
		return indices[i]
	}
	return -1
}

func (m *Mesh) addVertex(decoder *obj.Decoder, unique map[vertexKey]uint32, face obj.Face, i int) {
	key := vertexKey{
		position: face.Vertices[i],
		uv:       faceIndex(face.Uvs, i),
		normal:   faceIndex(face.Normals, i),
	}

	index, ok := unique[key]
	if !ok {
		vert := Vertex{Position: mgl32.Vec3{
			decoder.Vertices[key.position*3],
			decoder.Vertices[key.position*3+1],
			decoder.Vertices[key.position*3+2],
		}}
		if key.uv >= 0 && key.uv*2+1 < len(decoder.Uvs) {
			vert.TexCoord = mgl32.Vec2{
				decoder.Uvs[key.uv*2],
				1.0 - decoder.Uvs[key.uv*2+1],
			}
		}
		if key.normal >= 0 && key.normal*3+2 < len(decoder.Normals) {
			vert.Normal = mgl32.Vec3{
				decoder.Normals[key.normal*3],
				decoder.Normals[key.normal*3+1],
				decoder.Normals[key.normal*3+2],
			}
		}

		index = uint32(len(m.Vertices))
		m.Vertices = append(m.Vertices, vert)
		unique[key] = index
	}

	m.Indices = append(m.Indices, index)
}

func (m *Mesh) computeBounds() {
	m.Min = m.Vertices[0].Position
	m.Max = m.Vertices[0].Position
	for _, v := range m.Vertices[1:] {
		for axis := 0; axis < 3; axis++ {
			if v.Position[axis] < m.Min[axis] {
				m.Min[axis] = v.Position[axis]
			}
			if v.Position[axis] > m.Max[axis] {
				m.Max[axis] = v.Position[axis]
			}
		}
	}
}

// Center is the midpoint of the bounding box.
func (m *Mesh) Center() mgl32.Vec3 {
	return m.Min.Add(m.Max).Mul(0.5)
}

// VertexBytes encodes the vertices in the device byte order.
func (m *Mesh) VertexBytes() ([]byte, error) {
	return encode(m.Vertices)
}

func (m *Mesh) IndexBytes() ([]byte, error) {
	return encode(m.Indices)
}

func encode(data interface{}) ([]byte, error) {
	buf := &bytes.Buffer{}
	err := binary.Write(buf, common.ByteOrder, data)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
