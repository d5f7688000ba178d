// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package hevc

import (
	"github.com/q191201771/naza/pkg/nazaerrors"
	"github.com/q191201771/tilemerge/pkg/expgolomb"
)

// syntaxReader 记录第一次出错，之后的读取都直接返回0，解析完一段语法后统一检查 err
type syntaxReader struct {
	r   *expgolomb.Reader
	err error
}

func newSyntaxReader(r *expgolomb.Reader) *syntaxReader {
	return &syntaxReader{r: r}
}

func (sr *syntaxReader) u(n uint) uint32 {
	if sr.err != nil {
		return 0
	}
	v, err := sr.r.ReadBits(n)
	if err != nil {
		sr.err = nazaerrors.Wrap(err)
	}
	return v
}

func (sr *syntaxReader) u8(n uint) uint8 {
	return uint8(sr.u(n))
}

func (sr *syntaxReader) flag() uint8 {
	return uint8(sr.u(1))
}

func (sr *syntaxReader) ue() uint32 {
	if sr.err != nil {
		return 0
	}
	v, err := sr.r.ReadUe()
	if err != nil {
		sr.err = nazaerrors.Wrap(err)
	}
	return v
}

func (sr *syntaxReader) se() int32 {
	if sr.err != nil {
		return 0
	}
	v, err := sr.r.ReadSe()
	if err != nil {
		sr.err = nazaerrors.Wrap(err)
	}
	return v
}

func (sr *syntaxReader) skip(n uint) {
	if sr.err != nil {
		return
	}
	if err := sr.r.SkipBits(n); err != nil {
		sr.err = nazaerrors.Wrap(err)
	}
}

func (sr *syntaxReader) pos() uint {
	return sr.r.Pos()
}

// check 值超出范围时记录错误
func (sr *syntaxReader) check(ok bool, err error) bool {
	if sr.err != nil {
		return false
	}
	if !ok {
		sr.err = err
		return false
	}
	return true
}

func (sr *syntaxReader) ok() bool {
	return sr.err == nil
}
