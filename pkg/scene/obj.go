package scene

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/taigrr/rednoise/pkg/math3d"
	"golang.org/x/sync/errgroup"
)

// textureWorkers bounds how many textures are decoded at once.
const textureWorkers = 4

// material is one newmtl block of an MTL library.
type material struct {
	colour      Colour
	texturePath string
	texture     *Texture
}

// LoadOBJ loads a Wavefront OBJ file and the MTL libraries and textures it
// references, resolved relative to the OBJ file.
func LoadOBJ(path string) (*Scene, error) {
	return ReadOBJ(os.DirFS(filepath.Dir(path)), filepath.Base(path))
}

// ReadOBJ parses the named OBJ file from fsys.
//
// Supported statements: v, vt, o, g, usemtl, mtllib and f. Face vertices
// may be written v, v/vt, v//vn or v/vt/vn, with negative indices counting
// back from the most recent vertex. Polygons are split into a triangle fan.
// Faces that appear before any o or g statement go into an object named
// after the file.
func ReadOBJ(fsys fs.FS, name string) (*Scene, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open obj: %w", err)
	}
	defer f.Close()

	p := &objParser{
		fsys:      fsys,
		dir:       path.Dir(name),
		materials: make(map[string]*material),
		scene:     New(),
		colour:    White,
	}
	p.object = NewObject(strings.TrimSuffix(path.Base(name), path.Ext(name)))
	p.scene.Add(p.object)

	if err := p.parse(f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	// Drop objects that never received a face, such as the implicit one.
	objects := p.scene.Objects[:0]
	for _, o := range p.scene.Objects {
		if len(o.Triangles) > 0 {
			objects = append(objects, o)
		}
	}
	p.scene.Objects = objects
	return p.scene, nil
}

type objParser struct {
	fsys      fs.FS
	dir       string
	materials map[string]*material

	vertices []math3d.Vec3
	uvs      []math3d.Vec2

	scene   *Scene
	object  *Object
	colour  Colour
	texture *Texture
}

func (p *objParser) parse(r io.Reader) error {
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if err := p.statement(fields); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	return sc.Err()
}

func (p *objParser) statement(fields []string) error {
	args := fields[1:]
	switch fields[0] {
	case "v":
		v, err := parseFloats(args, 3)
		if err != nil {
			return fmt.Errorf("vertex: %w", err)
		}
		p.vertices = append(p.vertices, math3d.V3(v[0], v[1], v[2]))
	case "vt":
		v, err := parseFloats(args, 2)
		if err != nil {
			return fmt.Errorf("texture vertex: %w", err)
		}
		// OBJ puts v=0 at the bottom of the image; textures index from the top.
		p.uvs = append(p.uvs, math3d.V2(v[0], 1-v[1]))
	case "o", "g":
		name := strings.Join(args, " ")
		if name == "" {
			name = fmt.Sprintf("object%d", len(p.scene.Objects))
		}
		p.object = NewObject(name)
		p.scene.Add(p.object)
	case "usemtl":
		if len(args) == 0 {
			return fmt.Errorf("usemtl without a name")
		}
		m, ok := p.materials[args[0]]
		if !ok {
			return fmt.Errorf("unknown material %q", args[0])
		}
		p.colour = m.colour
		p.texture = m.texture
	case "mtllib":
		for _, lib := range args {
			if err := p.loadMTL(path.Join(p.dir, lib)); err != nil {
				return err
			}
		}
	case "f":
		return p.face(args)
	}
	// vn, s, l and other statements carry nothing the renderer uses.
	return nil
}

func (p *objParser) face(args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("face needs at least 3 vertices, got %d", len(args))
	}

	verts := make([]math3d.Vec3, len(args))
	uvs := make([]math3d.Vec2, len(args))
	allUV := true
	for i, ref := range args {
		parts := strings.Split(ref, "/")
		vi, err := resolveIndex(parts[0], len(p.vertices))
		if err != nil {
			return fmt.Errorf("face vertex %q: %w", ref, err)
		}
		verts[i] = p.vertices[vi]

		if len(parts) > 1 && parts[1] != "" {
			ti, err := resolveIndex(parts[1], len(p.uvs))
			if err != nil {
				return fmt.Errorf("face texture vertex %q: %w", ref, err)
			}
			uvs[i] = p.uvs[ti]
		} else {
			allUV = false
		}
	}

	for i := 1; i+1 < len(verts); i++ {
		tri := Triangle{
			Vertices: [3]math3d.Vec3{verts[0], verts[i], verts[i+1]},
			Colour:   p.colour,
		}
		if p.texture != nil && allUV {
			tri.Texture = &TextureTriangle{
				Points:  [3]math3d.Vec2{uvs[0], uvs[i], uvs[i+1]},
				Texture: p.texture,
			}
		}
		p.object.Triangles = append(p.object.Triangles, tri)
	}
	return nil
}

// loadMTL reads a material library and decodes the textures it names.
func (p *objParser) loadMTL(name string) error {
	f, err := p.fsys.Open(name)
	if err != nil {
		return fmt.Errorf("open mtl: %w", err)
	}
	defer f.Close()

	var current *material
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		switch fields[0] {
		case "newmtl":
			if len(fields) < 2 {
				return fmt.Errorf("%s:%d: newmtl without a name", name, lineNo)
			}
			current = &material{colour: White}
			current.colour.Name = fields[1]
			p.materials[fields[1]] = current
		case "Kd":
			if current == nil {
				return fmt.Errorf("%s:%d: Kd before newmtl", name, lineNo)
			}
			kd, err := parseFloats(fields[1:], 3)
			if err != nil {
				return fmt.Errorf("%s:%d: Kd: %w", name, lineNo, err)
			}
			current.colour.R = clampUnit(kd[0])
			current.colour.G = clampUnit(kd[1])
			current.colour.B = clampUnit(kd[2])
		case "map_Kd":
			if current == nil {
				return fmt.Errorf("%s:%d: map_Kd before newmtl", name, lineNo)
			}
			if len(fields) < 2 {
				return fmt.Errorf("%s:%d: map_Kd without a file", name, lineNo)
			}
			// Options such as -s may precede the file name, which comes last.
			current.texturePath = path.Join(path.Dir(name), fields[len(fields)-1])
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read mtl %s: %w", name, err)
	}

	return p.loadTextures()
}

// loadTextures decodes every texture referenced by a material that does
// not have one yet. Each distinct file is decoded once, concurrently.
func (p *objParser) loadTextures() error {
	var paths []string
	index := make(map[string]int)
	for _, m := range p.materials {
		if m.texturePath == "" || m.texture != nil {
			continue
		}
		if _, ok := index[m.texturePath]; !ok {
			index[m.texturePath] = len(paths)
			paths = append(paths, m.texturePath)
		}
	}
	if len(paths) == 0 {
		return nil
	}

	textures := make([]*Texture, len(paths))
	var g errgroup.Group
	g.SetLimit(textureWorkers)
	for i, name := range paths {
		g.Go(func() error {
			tex, err := ReadTexture(p.fsys, name)
			if err != nil {
				return err
			}
			textures[i] = tex
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, m := range p.materials {
		if i, ok := index[m.texturePath]; ok && m.texture == nil {
			m.texture = textures[i]
		}
	}
	return nil
}

// resolveIndex turns a 1-based (or negative, relative) OBJ index into a
// 0-based slice index.
func resolveIndex(s string, n int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if i < 0 {
		i = n + i
	} else {
		i--
	}
	if i < 0 || i >= n {
		return 0, fmt.Errorf("index %s out of range (have %d)", s, n)
	}
	return i, nil
}

func parseFloats(fields []string, n int) ([]float64, error) {
	if len(fields) < n {
		return nil, fmt.Errorf("want %d numbers, got %d", n, len(fields))
	}
	out := make([]float64, n)
	for i := range n {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
