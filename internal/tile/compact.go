package tile

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/annel0/planet-lod/internal/vec"
)

// Компактация геометрии скрытых тайлов: буферы сериализуются в плотное
// бинарное представление и сжимаются zstd. Пара кодер/декодер без
// собственных буферов используется в stateless-режиме EncodeAll/DecodeAll.
var (
	packEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	packDecoder, _ = zstd.NewReader(nil)
)

func packGeometry(g *Geometry) ([]byte, error) {
	buf := &bytes.Buffer{}

	write := func(v interface{}) error {
		return binary.Write(buf, binary.LittleEndian, v)
	}

	if err := write(uint32(g.Resolution)); err != nil {
		return nil, fmt.Errorf("сериализация геометрии: %w", err)
	}
	if err := write(uint32(len(g.Vertices))); err != nil {
		return nil, fmt.Errorf("сериализация геометрии: %w", err)
	}
	if err := write(uint32(len(g.Indices))); err != nil {
		return nil, fmt.Errorf("сериализация геометрии: %w", err)
	}
	if err := write([3]float64{g.CenterWorld.X, g.CenterWorld.Y, g.CenterWorld.Z}); err != nil {
		return nil, fmt.Errorf("сериализация геометрии: %w", err)
	}

	for _, v := range g.Vertices {
		if err := write([3]float64{v.X, v.Y, v.Z}); err != nil {
			return nil, fmt.Errorf("сериализация вершин: %w", err)
		}
	}
	for _, n := range g.Normals {
		if err := write([3]float64{n.X, n.Y, n.Z}); err != nil {
			return nil, fmt.Errorf("сериализация нормалей: %w", err)
		}
	}
	for _, uv := range g.UVs {
		if err := write(uv); err != nil {
			return nil, fmt.Errorf("сериализация UV: %w", err)
		}
	}
	if err := write(g.Indices); err != nil {
		return nil, fmt.Errorf("сериализация индексов: %w", err)
	}

	return packEncoder.EncodeAll(buf.Bytes(), nil), nil
}

func unpackGeometry(id Identity, data []byte) (*Geometry, error) {
	raw, err := packDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("распаковка геометрии %s: %w", id, err)
	}

	buf := bytes.NewReader(raw)
	read := func(v interface{}) error {
		return binary.Read(buf, binary.LittleEndian, v)
	}

	var resolution, vertexCount, indexCount uint32
	if err := read(&resolution); err != nil {
		return nil, fmt.Errorf("чтение заголовка геометрии: %w", err)
	}
	if err := read(&vertexCount); err != nil {
		return nil, fmt.Errorf("чтение заголовка геометрии: %w", err)
	}
	if err := read(&indexCount); err != nil {
		return nil, fmt.Errorf("чтение заголовка геометрии: %w", err)
	}

	var center [3]float64
	if err := read(&center); err != nil {
		return nil, fmt.Errorf("чтение центра геометрии: %w", err)
	}

	g := &Geometry{
		ID:          id,
		Resolution:  int(resolution),
		Vertices:    make([]vec.Vec3F, vertexCount),
		Normals:     make([]vec.Vec3F, vertexCount),
		UVs:         make([][2]float32, vertexCount),
		Indices:     make([]uint32, indexCount),
		CenterWorld: vec.Vec3F{X: center[0], Y: center[1], Z: center[2]},
	}

	for i := range g.Vertices {
		var p [3]float64
		if err := read(&p); err != nil {
			return nil, fmt.Errorf("чтение вершин: %w", err)
		}
		g.Vertices[i] = vec.Vec3F{X: p[0], Y: p[1], Z: p[2]}
	}
	for i := range g.Normals {
		var n [3]float64
		if err := read(&n); err != nil {
			return nil, fmt.Errorf("чтение нормалей: %w", err)
		}
		g.Normals[i] = vec.Vec3F{X: n[0], Y: n[1], Z: n[2]}
	}
	for i := range g.UVs {
		if err := read(&g.UVs[i]); err != nil {
			return nil, fmt.Errorf("чтение UV: %w", err)
		}
	}
	if err := read(g.Indices); err != nil {
		return nil, fmt.Errorf("чтение индексов: %w", err)
	}

	return g, nil
}
