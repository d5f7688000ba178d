// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package expgolomb

import (
	"errors"
	"math"
	"testing"

	"github.com/q191201771/naza/pkg/assert"
	"github.com/q191201771/tilemerge/pkg/base"
)

func TestUeGolden(t *testing.T) {
	// ue: 0 -> 1, 1 -> 010, 2 -> 011, 3 -> 00100
	w := NewWriter(8)
	w.WriteUe(0)
	w.WriteUe(1)
	w.WriteUe(2)
	w.WriteUe(3)
	assert.Equal(t, uint(12), w.Pos())
	// 1010 0110 0100 -> 0xa6 0x40
	assert.Equal(t, []byte{0xa6, 0x40}, w.Bytes())

	r := NewReader(w.Bytes())
	for _, exp := range []uint32{0, 1, 2, 3} {
		v, err := r.ReadUe()
		assert.Equal(t, nil, err)
		assert.Equal(t, exp, v)
	}
	assert.Equal(t, uint(12), r.Pos())
}

func TestSeGolden(t *testing.T) {
	// se: 0 -> 1, 1 -> 010, -1 -> 011, 2 -> 00100, -2 -> 00101
	w := NewWriter(8)
	for _, v := range []int32{0, 1, -1, 2, -2} {
		w.WriteSe(v)
	}
	w.ByteAlign()
	// 1010 0110 0100 0010 1000 0000
	assert.Equal(t, []byte{0xa6, 0x42, 0x80}, w.Bytes())
}

func TestUeRoundTrip(t *testing.T) {
	values := []uint32{0, 1, 2, 6, 7, 8, 25, 63, 64, 255, 256, 65535, 65536, 1<<31 - 1, 1 << 31, math.MaxUint32 - 1, math.MaxUint32}
	for i := uint32(0); i < 4096; i++ {
		values = append(values, i*104729)
	}
	w := NewWriter(16)
	for _, v := range values {
		w.WriteUe(v)
	}
	r := NewReader(w.Bytes())
	for _, v := range values {
		got, err := r.ReadUe()
		assert.Equal(t, nil, err)
		assert.Equal(t, v, got)
	}
}

func TestSeRoundTrip(t *testing.T) {
	values := []int32{0, 1, -1, 2, -2, 26, -26, 127, -128, math.MaxInt16, math.MinInt16, math.MaxInt32, math.MinInt32, math.MaxInt32 - 1, math.MinInt32 + 1}
	for i := int32(-2048); i < 2048; i++ {
		values = append(values, i*524287)
	}
	w := NewWriter(16)
	for _, v := range values {
		w.WriteSe(v)
	}
	r := NewReader(w.Bytes())
	for _, v := range values {
		got, err := r.ReadSe()
		assert.Equal(t, nil, err)
		assert.Equal(t, v, got)
	}
}

func TestReaderBits(t *testing.T) {
	r := NewReader([]byte{0x12, 0x34, 0x56, 0x78, 0x9a})
	v, err := r.ReadBits(4)
	assert.Equal(t, nil, err)
	assert.Equal(t, uint32(0x1), v)
	assert.Equal(t, false, r.IsByteAligned())
	v, err = r.ReadBits(32)
	assert.Equal(t, nil, err)
	assert.Equal(t, uint32(0x23456789), v)
	assert.Equal(t, uint(36), r.Pos())
	assert.Equal(t, uint(4), r.AvailBits())
	assert.Equal(t, nil, r.ByteAlign())
	assert.Equal(t, uint(40), r.Pos())

	_, err = r.ReadBit()
	assert.Equal(t, true, errors.Is(err, base.ErrShortBuffer))

	r = NewReader([]byte{0xff})
	assert.Equal(t, true, errors.Is(r.SkipBits(9), base.ErrShortBuffer))
	assert.Equal(t, uint(0), r.Pos())
}

func TestReadUeShortBuffer(t *testing.T) {
	// 前缀0之后数据不够
	r := NewReader([]byte{0x00, 0x01})
	_, err := r.ReadUe()
	assert.Equal(t, true, errors.Is(err, base.ErrShortBuffer))

	r = NewReader([]byte{0x00, 0x00, 0x00, 0x00, 0x00})
	_, err = r.ReadUe()
	assert.IsNotNil(t, err)
}

func TestWriterCopyAndTrailing(t *testing.T) {
	src := []byte{0xde, 0xad, 0xbe, 0xef, 0x01}
	r := NewReader(src)
	w := NewWriter(0)
	w.WriteBit(1)
	assert.Equal(t, nil, w.CopyBits(r, 39))
	assert.Equal(t, uint(40), w.Pos())
	assert.Equal(t, []byte{0xef, 0x56, 0xdf, 0x77, 0x80}, w.Bytes())

	w = NewWriter(0)
	w.WriteBits(3, 0x5)
	w.WriteTrailingBits()
	assert.Equal(t, []byte{0xb0}, w.Bytes())

	w = NewWriter(0)
	w.WriteBits(8, 0xab)
	w.WriteTrailingBits()
	assert.Equal(t, []byte{0xab, 0x80}, w.Bytes())

	w = NewWriter(0)
	w.WriteBits(4, 0xf)
	w.WriteBytes([]byte{0x12, 0x34})
	w.ByteAlign()
	assert.Equal(t, []byte{0xf1, 0x23, 0x40}, w.Bytes())
}
