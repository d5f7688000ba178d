// Copyright 2022, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package h2645

import (
	"fmt"

	"github.com/q191201771/naza/pkg/bele"
	"github.com/q191201771/tilemerge/pkg/base"
)

// 长度前缀格式（avcc/hvcc）以及annexb格式的nalu拆分与拼接

var (
	NaluStartCode4 = []byte{0x0, 0x0, 0x0, 0x1}
)

// IterateNaluAvcc 遍历4字节长度前缀的nalu流
func IterateNaluAvcc(nals []byte, handler func(nal []byte)) error {
	return IterateNaluAvccWithLength(nals, 4, handler)
}

// IterateNaluAvccWithLength 遍历长度前缀格式的nalu流
//
// @param lengthSize: 长度字段的字节数，取值1~4，也即decoder configuration record中的lengthSizeMinusOne+1
//
// @param handler: 注意，回调的nal是nals的切片，没有拷贝
//
func IterateNaluAvccWithLength(nals []byte, lengthSize int, handler func(nal []byte)) error {
	if lengthSize < 1 || lengthSize > 4 {
		return fmt.Errorf("%w. length size=%d", base.ErrH2645LengthSizeErr, lengthSize)
	}

	pos := 0
	for pos < len(nals) {
		if len(nals)-pos < lengthSize {
			return fmt.Errorf("%w. pos=%d, len=%d", base.ErrShortBuffer, pos, len(nals))
		}
		length := readLength(nals[pos:], lengthSize)
		pos += lengthSize
		if length == 0 {
			// 长度为0的nalu直接跳过
			continue
		}
		if length > len(nals)-pos {
			return fmt.Errorf("%w. pos=%d, length=%d, len=%d", base.ErrH2645NaluLength, pos, length, len(nals))
		}
		handler(nals[pos : pos+length])
		pos += length
	}
	return nil
}

// SplitNaluAvccWithLength 同 IterateNaluAvccWithLength ，结果以数组形式返回
func SplitNaluAvccWithLength(nals []byte, lengthSize int) ([][]byte, error) {
	var ret [][]byte
	err := IterateNaluAvccWithLength(nals, lengthSize, func(nal []byte) {
		ret = append(ret, nal)
	})
	return ret, err
}

// JoinNaluAvcc 拼接成4字节长度前缀格式
func JoinNaluAvcc(naluList ...[]byte) []byte {
	n := len(naluList)
	if n == 0 {
		return nil
	}
	n *= 4
	for _, item := range naluList {
		n += len(item)
	}
	ret := make([]byte, n)

	pos := 0
	for _, item := range naluList {
		bele.BePutUint32(ret[pos:], uint32(len(item)))
		pos += 4
		copy(ret[pos:], item)
		pos += len(item)
	}

	return ret
}

// AppendNaluAvcc 在dst后追加4字节长度前缀以及nal
func AppendNaluAvcc(dst []byte, nal []byte) []byte {
	var l [4]byte
	bele.BePutUint32(l[:], uint32(len(nal)))
	dst = append(dst, l[:]...)
	return append(dst, nal...)
}

// IterateNaluStartCode 从start位置开始查找下一个起始码
//
// @return pos: 起始码的位置，没有找到时返回-1
// @return length: 起始码的长度，3或者4
//
func IterateNaluStartCode(nalu []byte, start int) (pos, length int) {
	if nalu == nil || start >= len(nalu) {
		return -1, -1
	}
	count := 0
	for i := start; i < len(nalu); i++ {
		switch nalu[i] {
		case 0:
			count++
		case 1:
			if count >= 2 {
				if count == 2 {
					return i - 2, 3
				}
				return i - 3, 4
			}
			count = 0
		default:
			count = 0
		}
	}
	return -1, -1
}

// SplitNaluAnnexb 按起始码拆分annexb格式的流，返回的nalu不包含起始码
//
// 起始码之前的数据以及空的nalu会被丢弃
func SplitNaluAnnexb(b []byte) [][]byte {
	var ret [][]byte
	pos, length := IterateNaluStartCode(b, 0)
	for pos >= 0 {
		start := pos + length
		nextPos, nextLength := IterateNaluStartCode(b, start)
		end := len(b)
		if nextPos >= 0 {
			end = nextPos
		}
		if end > start {
			ret = append(ret, b[start:end])
		}
		pos, length = nextPos, nextLength
	}
	return ret
}

// JoinNaluAnnexb 使用4字节起始码拼接
func JoinNaluAnnexb(naluList ...[]byte) []byte {
	var ret []byte
	for _, item := range naluList {
		ret = append(ret, NaluStartCode4...)
		ret = append(ret, item...)
	}
	return ret
}

func readLength(b []byte, lengthSize int) int {
	switch lengthSize {
	case 1:
		return int(b[0])
	case 2:
		return int(bele.BeUint16(b))
	case 3:
		return int(bele.BeUint24(b))
	}
	return int(bele.BeUint32(b))
}
