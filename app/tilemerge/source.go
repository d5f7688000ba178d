// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package main

import (
	"bytes"
	"fmt"

	log "github.com/q191201771/naza/pkg/nazalog"
	"github.com/q191201771/tilemerge/pkg/base"
	"github.com/q191201771/tilemerge/pkg/h2645"
	"github.com/q191201771/tilemerge/pkg/hevc"
)

// TileSource 一路输入文件，打开时全部读入内存，并拆分成access unit
type TileSource struct {
	uniqueKey string
	path      string

	width  uint32
	height uint32
	dcr    []byte

	pkts []base.AvPacket
}

// 一个access unit，nalu为annexb格式去掉start code之后的内容
type accessUnit struct {
	dts   int64
	pts   int64
	nalus [][]byte
}

func (s *TileSource) PeekPacket() *base.AvPacket {
	if len(s.pkts) == 0 {
		return nil
	}
	return &s.pkts[0]
}

func (s *TileSource) DropPacket() {
	if len(s.pkts) != 0 {
		s.pkts = s.pkts[1:]
	}
}

// IsEos 文件已经全部读入，包取完即结束
func (s *TileSource) IsEos() bool {
	return len(s.pkts) == 0
}

func (s *TileSource) UniqueKey() string {
	return s.uniqueKey
}

// init 从access unit中获取参数集，构造hvcC，并转换成4字节长度前缀格式的包
func (s *TileSource) init(aus []accessUnit) error {
	var vpsList, spsList, ppsList [][]byte
	appendUnique := func(list [][]byte, nal []byte) [][]byte {
		for _, item := range list {
			if bytes.Equal(item, nal) {
				return list
			}
		}
		return append(list, nal)
	}
	for _, au := range aus {
		for _, nal := range au.nalus {
			switch hevc.CalcNaluType(nal) {
			case hevc.NaluTypeVps:
				vpsList = appendUnique(vpsList, nal)
			case hevc.NaluTypeSps:
				spsList = appendUnique(spsList, nal)
			case hevc.NaluTypePps:
				ppsList = appendUnique(ppsList, nal)
			}
		}
		if len(vpsList) != 0 && len(spsList) != 0 && len(ppsList) != 0 {
			break
		}
	}
	record, err := hevc.BuildDecoderConfigurationRecord(vpsList, spsList, ppsList)
	if err != nil {
		return fmt.Errorf("%w. path=%s, err=%s", base.ErrSourceNoHevcTrack, s.path, err.Error())
	}
	sps, err := hevc.ParseSps(spsList[0])
	if err != nil {
		return err
	}
	s.width = sps.Width()
	s.height = sps.Height()
	s.dcr = record.Pack()

	s.pkts = make([]base.AvPacket, 0, len(aus))
	for _, au := range aus {
		s.pkts = append(s.pkts, base.AvPacket{
			PayloadType: base.AvPacketPtHevc,
			Timestamp:   au.dts / 90,
			Dts:         au.dts,
			Pts:         au.pts,
			Payload:     h2645.JoinNaluAvcc(au.nalus...),
		})
	}
	log.Infof("[%s] open tile source. path=%s, size=%dx%d, aus=%d", s.uniqueKey, s.path, s.width, s.height, len(s.pkts))
	return nil
}

// splitAccessUnits 把annexb的nalu序列拆分成access unit
//
// 新的access unit开始于：aud；已经有vcl之后出现的参数集、前缀sei；已经有vcl之后first_slice_segment_in_pic_flag为1的slice
//
func splitAccessUnits(nalus [][]byte) [][][]byte {
	var ret [][][]byte
	var cur [][]byte
	hasVcl := false
	for _, nal := range nalus {
		if len(nal) < 2 {
			continue
		}
		typ := hevc.CalcNaluType(nal)
		isVcl := hevc.IsSliceNalu(typ)
		var isStart bool
		switch {
		case typ == hevc.NaluTypeAud:
			isStart = true
		case isVcl:
			isStart = hasVcl && len(nal) > 2 && nal[2]&0x80 != 0
		case hevc.IsParameterSetNalu(typ) || typ == hevc.NaluTypeSei:
			isStart = hasVcl
		}
		if isStart && len(cur) != 0 {
			ret = append(ret, cur)
			cur = nil
			hasVcl = false
		}
		cur = append(cur, nal)
		if isVcl {
			hasVcl = true
		}
	}
	if len(cur) != 0 {
		ret = append(ret, cur)
	}
	return ret
}
