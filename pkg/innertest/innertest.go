// Copyright 2020, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

// Package innertest 构造测试用的h265码流
//
// 参数集以及slice header按语法逐个字段写入，slice的payload由调用方指定，
// 用于验证解析、改写后的各字段位置以及payload不变
package innertest

import (
	"github.com/q191201771/tilemerge/pkg/expgolomb"
	"github.com/q191201771/tilemerge/pkg/h2645"
)

// NalWriter 按位写入nal，位置从nal header的第一位开始计数，不包含防竞争字节
type NalWriter struct {
	w *expgolomb.Writer
}

// NewNalWriter 写入2字节nal header，nuh_layer_id为0，nuh_temporal_id_plus1为1
func NewNalWriter(naluType uint8) *NalWriter {
	nw := &NalWriter{
		w: expgolomb.NewWriter(64),
	}
	nw.w.WriteBit(0)
	nw.w.WriteBits(6, uint32(naluType))
	nw.w.WriteBits(6, 0)
	nw.w.WriteBits(3, 1)
	return nw
}

func (nw *NalWriter) U(n uint, v uint32) {
	nw.w.WriteBits(n, v)
}

func (nw *NalWriter) U8(n uint, v uint8) {
	nw.w.WriteBits(n, uint32(v))
}

func (nw *NalWriter) Ue(v uint32) {
	nw.w.WriteUe(v)
}

func (nw *NalWriter) Se(v int32) {
	nw.w.WriteSe(v)
}

func (nw *NalWriter) Pos() uint {
	return nw.w.Pos()
}

// Rbsp 写入rbsp_trailing_bits，返回添加了防竞争字节的nal
func (nw *NalWriter) Rbsp() []byte {
	nw.w.WriteTrailingBits()
	return h2645.AddEmulationPrevention(nw.w.Bytes())
}

// Slice 写入byte_alignment()以及slice data，返回添加了防竞争字节的nal
func (nw *NalWriter) Slice(payload []byte) []byte {
	nw.w.WriteTrailingBits()
	nw.w.WriteBytes(payload)
	return h2645.AddEmulationPrevention(nw.w.Bytes())
}

// CeilLog2 与hevc包中的实现保持独立，用于交叉验证
func CeilLog2(v uint32) uint {
	n := uint(0)
	for uint64(1)<<n < uint64(v) {
		n++
	}
	return n
}

// Payload 构造n字节的slice data，包含需要添加防竞争字节的序列
func Payload(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		switch i % 7 {
		case 2, 3:
			b[i] = 0
		case 4:
			b[i] = byte(i) & 0x03
		default:
			b[i] = seed + byte(i)
		}
	}
	if n > 0 && b[n-1] == 0 {
		b[n-1] = 0x80
	}
	return b
}
