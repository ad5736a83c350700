package scene

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"

	"github.com/qmuntal/gltf"
	"github.com/taigrr/rednoise/pkg/math3d"
)

// LoadGLTF loads a glTF or GLB file. Every glTF mesh becomes one Object,
// named after the mesh. A primitive's material supplies the triangle
// colour (base colour factor) and, when it has TEXCOORD_0, its base colour
// texture. Node transforms are not applied.
func LoadGLTF(path string) (*Scene, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf: %w", err)
	}

	l := &gltfLoader{
		doc:      doc,
		dir:      filepath.Dir(path),
		textures: make(map[int]*Texture),
	}

	s := New()
	for i, m := range doc.Meshes {
		name := m.Name
		if name == "" {
			name = fmt.Sprintf("mesh%d", i)
		}
		obj := NewObject(name)
		if err := l.processMesh(m, obj); err != nil {
			return nil, fmt.Errorf("process mesh %q: %w", name, err)
		}
		if len(obj.Triangles) > 0 {
			s.Add(obj)
		}
	}
	return s, nil
}

type gltfLoader struct {
	doc      *gltf.Document
	dir      string
	textures map[int]*Texture // by image index
}

// processMesh appends the triangles of every triangle-list primitive.
func (l *gltfLoader) processMesh(m *gltf.Mesh, obj *Object) error {
	for _, prim := range m.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles && prim.Mode != 0 {
			// Skip non-triangle primitives (lines, points, etc)
			continue
		}

		posIdx, ok := prim.Attributes[gltf.POSITION]
		if !ok {
			continue
		}
		positions, err := readVec3Accessor(l.doc, posIdx)
		if err != nil {
			return fmt.Errorf("read positions: %w", err)
		}

		var uvs []math3d.Vec2
		if uvIdx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
			uvs, err = readVec2Accessor(l.doc, uvIdx)
			if err != nil {
				return fmt.Errorf("read uvs: %w", err)
			}
		}

		colour, tex, err := l.material(prim.Material)
		if err != nil {
			return err
		}
		if len(uvs) < len(positions) {
			tex = nil
		}

		var indices []int
		if prim.Indices != nil {
			indices, err = readIndices(l.doc, *prim.Indices)
			if err != nil {
				return fmt.Errorf("read indices: %w", err)
			}
		} else {
			indices = make([]int, len(positions))
			for i := range indices {
				indices[i] = i
			}
		}

		for i := 0; i+2 < len(indices); i += 3 {
			var tri Triangle
			tri.Colour = colour
			for k := range 3 {
				idx := indices[i+k]
				if idx < 0 || idx >= len(positions) {
					return fmt.Errorf("index %d out of range (have %d vertices)", idx, len(positions))
				}
				tri.Vertices[k] = positions[idx]
			}
			if tex != nil {
				// glTF UVs already have v=0 at the top of the image.
				tri.Texture = &TextureTriangle{
					Points:  [3]math3d.Vec2{uvs[indices[i]], uvs[indices[i+1]], uvs[indices[i+2]]},
					Texture: tex,
				}
			}
			obj.Triangles = append(obj.Triangles, tri)
		}
	}
	return nil
}

// material resolves a primitive's material to a colour and optional texture.
func (l *gltfLoader) material(idx *int) (Colour, *Texture, error) {
	if idx == nil || *idx < 0 || *idx >= len(l.doc.Materials) {
		return White, nil, nil
	}
	mat := l.doc.Materials[*idx]
	colour := White
	colour.Name = mat.Name

	pbr := mat.PBRMetallicRoughness
	if pbr == nil {
		return colour, nil, nil
	}
	if f := pbr.BaseColorFactor; f != nil {
		colour.R = clampUnit(f[0])
		colour.G = clampUnit(f[1])
		colour.B = clampUnit(f[2])
	}
	if pbr.BaseColorTexture == nil {
		return colour, nil, nil
	}

	texIdx := pbr.BaseColorTexture.Index
	if texIdx < 0 || texIdx >= len(l.doc.Textures) || l.doc.Textures[texIdx].Source == nil {
		return colour, nil, nil
	}
	tex, err := l.image(*l.doc.Textures[texIdx].Source)
	if err != nil {
		return colour, nil, fmt.Errorf("material %q: %w", mat.Name, err)
	}
	return colour, tex, nil
}

// image decodes (once) the image at index i, embedded or external.
func (l *gltfLoader) image(i int) (*Texture, error) {
	if tex, ok := l.textures[i]; ok {
		return tex, nil
	}
	if i < 0 || i >= len(l.doc.Images) {
		return nil, fmt.Errorf("image %d out of range", i)
	}
	img := l.doc.Images[i]

	var data []byte
	switch {
	case img.BufferView != nil:
		bv := l.doc.BufferViews[*img.BufferView]
		buf := l.doc.Buffers[bv.Buffer]
		if buf.Data == nil || bv.ByteOffset+bv.ByteLength > len(buf.Data) {
			return nil, fmt.Errorf("image %d: buffer has no data", i)
		}
		data = buf.Data[bv.ByteOffset : bv.ByteOffset+bv.ByteLength]
	case img.URI != "":
		var err error
		data, err = os.ReadFile(filepath.Join(l.dir, img.URI))
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i, err)
		}
	default:
		return nil, fmt.Errorf("image %d has no data", i)
	}

	decoded, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image %d: %w", i, err)
	}
	tex := TextureFromImage(decoded)
	tex.Name = img.Name
	l.textures[i] = tex
	return tex, nil
}

// readVec3Accessor reads Vec3 data from a glTF accessor.
func readVec3Accessor(doc *gltf.Document, accessorIdx int) ([]math3d.Vec3, error) {
	accessor := doc.Accessors[accessorIdx]
	if accessor.Type != gltf.AccessorVec3 {
		return nil, fmt.Errorf("expected VEC3, got %v", accessor.Type)
	}
	floats, err := readFloats(doc, accessor, 3)
	if err != nil {
		return nil, err
	}
	result := make([]math3d.Vec3, accessor.Count)
	for i := range result {
		result[i] = math3d.V3(floats[i*3], floats[i*3+1], floats[i*3+2])
	}
	return result, nil
}

// readVec2Accessor reads Vec2 data from a glTF accessor.
func readVec2Accessor(doc *gltf.Document, accessorIdx int) ([]math3d.Vec2, error) {
	accessor := doc.Accessors[accessorIdx]
	if accessor.Type != gltf.AccessorVec2 {
		return nil, fmt.Errorf("expected VEC2, got %v", accessor.Type)
	}
	floats, err := readFloats(doc, accessor, 2)
	if err != nil {
		return nil, err
	}
	result := make([]math3d.Vec2, accessor.Count)
	for i := range result {
		result[i] = math3d.V2(floats[i*2], floats[i*2+1])
	}
	return result, nil
}

// accessorBytes returns the buffer bytes, start offset and stride of an accessor.
func accessorBytes(doc *gltf.Document, accessor *gltf.Accessor, elemSize int) ([]byte, int, int, error) {
	if accessor.BufferView == nil {
		return nil, 0, 0, fmt.Errorf("accessor has no buffer view")
	}
	bufferView := doc.BufferViews[*accessor.BufferView]
	data := doc.Buffers[bufferView.Buffer].Data
	if data == nil {
		return nil, 0, 0, fmt.Errorf("buffer has no data")
	}

	start := bufferView.ByteOffset + accessor.ByteOffset
	stride := bufferView.ByteStride
	if stride == 0 {
		stride = elemSize
	}
	if accessor.Count > 0 && start+(accessor.Count-1)*stride+elemSize > len(data) {
		return nil, 0, 0, fmt.Errorf("accessor overruns buffer")
	}
	return data, start, stride, nil
}

// readFloats reads n little-endian float32 components per element.
func readFloats(doc *gltf.Document, accessor *gltf.Accessor, n int) ([]float64, error) {
	if accessor.ComponentType != gltf.ComponentFloat {
		return nil, fmt.Errorf("unsupported component type %v", accessor.ComponentType)
	}
	data, start, stride, err := accessorBytes(doc, accessor, n*4)
	if err != nil {
		return nil, err
	}
	out := make([]float64, accessor.Count*n)
	for i := range accessor.Count {
		offset := start + i*stride
		for j := range n {
			bits := binary.LittleEndian.Uint32(data[offset+j*4:])
			out[i*n+j] = float64(math.Float32frombits(bits))
		}
	}
	return out, nil
}

// readIndices reads index data from a glTF accessor.
func readIndices(doc *gltf.Document, accessorIdx int) ([]int, error) {
	accessor := doc.Accessors[accessorIdx]

	var size int
	switch accessor.ComponentType {
	case gltf.ComponentUbyte:
		size = 1
	case gltf.ComponentUshort:
		size = 2
	case gltf.ComponentUint:
		size = 4
	default:
		return nil, fmt.Errorf("unexpected index type: %v", accessor.ComponentType)
	}

	data, start, stride, err := accessorBytes(doc, accessor, size)
	if err != nil {
		return nil, err
	}
	result := make([]int, accessor.Count)
	for i := range result {
		b := data[start+i*stride:]
		switch size {
		case 1:
			result[i] = int(b[0])
		case 2:
			result[i] = int(binary.LittleEndian.Uint16(b))
		case 4:
			result[i] = int(binary.LittleEndian.Uint32(b))
		}
	}
	return result, nil
}
