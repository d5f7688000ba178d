// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package expgolomb

import "math/bits"

// Writer 高位在前的按位写入，空间不够时自动扩容
type Writer struct {
	buf   []byte
	cur   uint8
	nbits uint // cur中已写入的位数
}

func NewWriter(capacity int) *Writer {
	return &Writer{
		buf: make([]byte, 0, capacity),
	}
}

// Pos 已经写入的位数
func (w *Writer) Pos() uint {
	return uint(len(w.buf))*8 + w.nbits
}

func (w *Writer) IsByteAligned() bool {
	return w.nbits == 0
}

func (w *Writer) WriteBit(b uint8) {
	w.cur = w.cur<<1 | (b & 1)
	w.nbits++
	if w.nbits == 8 {
		w.buf = append(w.buf, w.cur)
		w.cur = 0
		w.nbits = 0
	}
}

func (w *Writer) WriteFlag(b bool) {
	if b {
		w.WriteBit(1)
	} else {
		w.WriteBit(0)
	}
}

// WriteBits 写入v的低n位，n不超过32
func (w *Writer) WriteBits(n uint, v uint32) {
	w.writeBits64(n, uint64(v))
}

func (w *Writer) writeBits64(n uint, v uint64) {
	for n > 0 {
		n--
		w.WriteBit(uint8(v>>n) & 1)
	}
}

// WriteBytes 对齐时直接追加，否则逐位写入
func (w *Writer) WriteBytes(b []byte) {
	if w.nbits == 0 {
		w.buf = append(w.buf, b...)
		return
	}
	for _, c := range b {
		w.writeBits64(8, uint64(c))
	}
}

// WriteUe ue(v)
func (w *Writer) WriteUe(v uint32) {
	w.writeUe64(uint64(v))
}

// WriteSe se(v)
func (w *Writer) WriteSe(v int32) {
	if v > 0 {
		w.writeUe64(uint64(v)*2 - 1)
	} else {
		w.writeUe64(uint64(-int64(v)) * 2)
	}
}

func (w *Writer) writeUe64(v uint64) {
	v++
	leadingZeroBits := uint(bits.Len64(v)) - 1
	w.writeBits64(leadingZeroBits, 0)
	w.writeBits64(leadingZeroBits+1, v)
}

// ByteAlign 用0补齐到字节边界
func (w *Writer) ByteAlign() {
	for w.nbits != 0 {
		w.WriteBit(0)
	}
}

// WriteTrailingBits rbsp_trailing_bits，写入rbsp_stop_one_bit后用0补齐
func (w *Writer) WriteTrailingBits() {
	w.WriteBit(1)
	w.ByteAlign()
}

// CopyBits 从r中读取n位原样写入
func (w *Writer) CopyBits(r *Reader, n uint) error {
	for n > 0 {
		m := n
		if m > 32 {
			m = 32
		}
		v, err := r.ReadBits(m)
		if err != nil {
			return err
		}
		w.WriteBits(m, v)
		n -= m
	}
	return nil
}

// Bytes 返回已写入的内容，不足一个字节的部分用0补齐，不修改writer的状态
func (w *Writer) Bytes() []byte {
	if w.nbits == 0 {
		return w.buf
	}
	out := make([]byte, len(w.buf), len(w.buf)+1)
	copy(out, w.buf)
	return append(out, w.cur<<(8-w.nbits))
}
