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
	"github.com/q191201771/tilemerge/pkg/base"
)

// Context 一路流的参数集，按id保存，同一个id后来的覆盖先来的
//
// 非并发安全
type Context struct {
	vpsList map[uint32]*Vps
	spsList map[uint32]*Sps
	ppsList map[uint32]*Pps
}

func NewContext() *Context {
	return &Context{
		vpsList: make(map[uint32]*Vps),
		spsList: make(map[uint32]*Sps),
		ppsList: make(map[uint32]*Pps),
	}
}

// ParseParameterSet 解析vps、sps、pps并保存
//
// @return typ: nal的类型，不是参数集时返回错误
//
func (ctx *Context) ParseParameterSet(nal []byte) (typ uint8, err error) {
	if len(nal) < 3 {
		return 0, nazaerrors.Wrap(base.ErrShortBuffer)
	}
	typ = CalcNaluType(nal)
	switch typ {
	case NaluTypeVps:
		vps, err := ParseVps(nal)
		if err != nil {
			return typ, err
		}
		ctx.vpsList[vps.VpsId] = vps
	case NaluTypeSps:
		sps, err := ParseSps(nal)
		if err != nil {
			return typ, err
		}
		ctx.spsList[sps.SpsId] = sps
	case NaluTypePps:
		pps, err := ParsePps(nal)
		if err != nil {
			return typ, err
		}
		ctx.ppsList[pps.PpsId] = pps
	default:
		return typ, nazaerrors.Wrap(base.ErrHevc)
	}
	return typ, nil
}

func (ctx *Context) GetVps(id uint32) (*Vps, error) {
	vps, ok := ctx.vpsList[id]
	if !ok {
		return nil, base.NewErrHevcParameterSetNotFound("vps", id)
	}
	return vps, nil
}

func (ctx *Context) GetSps(id uint32) (*Sps, error) {
	sps, ok := ctx.spsList[id]
	if !ok {
		return nil, base.NewErrHevcParameterSetNotFound("sps", id)
	}
	return sps, nil
}

func (ctx *Context) GetPps(id uint32) (*Pps, error) {
	pps, ok := ctx.ppsList[id]
	if !ok {
		return nil, base.NewErrHevcParameterSetNotFound("pps", id)
	}
	return pps, nil
}

// GetPpsAndSps pps以及它引用的sps
func (ctx *Context) GetPpsAndSps(ppsId uint32) (*Pps, *Sps, error) {
	pps, err := ctx.GetPps(ppsId)
	if err != nil {
		return nil, nil, err
	}
	sps, err := ctx.GetSps(pps.SpsId)
	if err != nil {
		return nil, nil, err
	}
	return pps, sps, nil
}

// FirstSps id最小的sps，用于获取流的宽高
func (ctx *Context) FirstSps() *Sps {
	var ret *Sps
	for id, sps := range ctx.spsList {
		if ret == nil || id < ret.SpsId {
			ret = sps
		}
	}
	return ret
}

func (ctx *Context) Reset() {
	ctx.vpsList = make(map[uint32]*Vps)
	ctx.spsList = make(map[uint32]*Sps)
	ctx.ppsList = make(map[uint32]*Pps)
}
