// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

// Package expgolomb 按位读写码流，以及指数哥伦布编码ue(v)/se(v)
package expgolomb

import (
	"fmt"
	"math"

	"github.com/q191201771/tilemerge/pkg/base"
	"github.com/q191201771/naza/pkg/nazabits"
)

// Reader 高位在前的按位读取，记录从首字节开始已经读取的位数
//
// 读取越界时返回 base.ErrShortBuffer
type Reader struct {
	br   nazabits.BitReader
	pos  uint
	size uint
}

func NewReader(b []byte) *Reader {
	return &Reader{
		br:   nazabits.NewBitReader(b),
		size: uint(len(b)) * 8,
	}
}

// Pos 已经读取的位数
func (r *Reader) Pos() uint {
	return r.pos
}

func (r *Reader) AvailBits() uint {
	return r.size - r.pos
}

func (r *Reader) IsByteAligned() bool {
	return r.pos&7 == 0
}

func (r *Reader) ReadBit() (uint8, error) {
	if err := r.check(1); err != nil {
		return 0, err
	}
	v, err := r.br.ReadBit()
	if err != nil {
		return 0, err
	}
	r.pos++
	return v, nil
}

func (r *Reader) ReadFlag() (bool, error) {
	v, err := r.ReadBit()
	return v == 1, err
}

// ReadBits 读取n位，n不超过32
func (r *Reader) ReadBits(n uint) (uint32, error) {
	if n == 0 {
		return 0, nil
	}
	if n > 32 {
		return 0, fmt.Errorf("%w. read bits, n=%d", base.ErrExpGolomb, n)
	}
	if err := r.check(n); err != nil {
		return 0, err
	}
	v, err := r.br.ReadBits32(n)
	if err != nil {
		return 0, err
	}
	r.pos += n
	return v, nil
}

func (r *Reader) SkipBits(n uint) error {
	if err := r.check(n); err != nil {
		return err
	}
	for n > 0 {
		m := n
		if m > 32 {
			m = 32
		}
		if _, err := r.ReadBits(m); err != nil {
			return err
		}
		n -= m
	}
	return nil
}

// ByteAlign 跳过到下一个字节边界
func (r *Reader) ByteAlign() error {
	if r.IsByteAligned() {
		return nil
	}
	return r.SkipBits(8 - r.pos&7)
}

// ReadUe ue(v)，值域为uint32
func (r *Reader) ReadUe() (uint32, error) {
	v, err := r.readUe64()
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint32 {
		return 0, fmt.Errorf("%w. ue overflow, v=%d", base.ErrExpGolomb, v)
	}
	return uint32(v), nil
}

// ReadSe se(v)，值域为int32
//
// codeNum k: k为奇数对应 (k+1)/2，k为偶数对应 -k/2
func (r *Reader) ReadSe() (int32, error) {
	k, err := r.readUe64()
	if err != nil {
		return 0, err
	}
	var v int64
	if k&1 == 1 {
		v = int64((k + 1) / 2)
	} else {
		v = -int64(k / 2)
	}
	if v > math.MaxInt32 || v < math.MinInt32 {
		return 0, fmt.Errorf("%w. se overflow, v=%d", base.ErrExpGolomb, v)
	}
	return int32(v), nil
}

// readUe64 前缀0的个数最多32个，也即最大可以表示 2^33-2
func (r *Reader) readUe64() (uint64, error) {
	var leadingZeroBits uint
	for {
		b, err := r.ReadBit()
		if err != nil {
			return 0, err
		}
		if b == 1 {
			break
		}
		leadingZeroBits++
		if leadingZeroBits > 32 {
			return 0, fmt.Errorf("%w. too many leading zero bits", base.ErrExpGolomb)
		}
	}
	if leadingZeroBits == 0 {
		return 0, nil
	}
	info, err := r.ReadBits(leadingZeroBits)
	if err != nil {
		return 0, err
	}
	return (uint64(1) << leadingZeroBits) - 1 + uint64(info), nil
}

func (r *Reader) check(n uint) error {
	if r.pos+n > r.size {
		return fmt.Errorf("%w. need=%d, avail=%d", base.ErrShortBuffer, n, r.size-r.pos)
	}
	return nil
}
