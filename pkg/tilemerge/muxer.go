// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package tilemerge

import (
	"errors"
	"sort"

	"github.com/q191201771/tilemerge/pkg/base"
	"github.com/q191201771/tilemerge/pkg/h2645"
	"github.com/q191201771/tilemerge/pkg/hevc"
)

type ProcessStatus int

const (
	// ProcessStatusNotReady 有输入流还没有数据，或者还没有完成配置，稍后再调用
	ProcessStatusNotReady ProcessStatus = iota + 1

	// ProcessStatusOutput 输出了一个access unit
	ProcessStatusOutput

	// ProcessStatusIdle 消费了输入包，但是没有需要输出的内容
	ProcessStatusIdle

	// ProcessStatusEos 所有输入流都已结束
	ProcessStatusEos
)

func (status ProcessStatus) ReadableString() string {
	switch status {
	case ProcessStatusNotReady:
		return "NotReady"
	case ProcessStatusOutput:
		return "Output"
	case ProcessStatusIdle:
		return "Idle"
	case ProcessStatusEos:
		return "Eos"
	}
	return "unknown"
}

type auSlice struct {
	rank int // tile按光栅扫描的序号
	nal  []byte
}

// accessUnit 合并中的一帧
type accessUnit struct {
	meta      *base.AvPacket // 第一个参与合并的包
	seiPrefix [][]byte
	slices    []auSlice
	seiSuffix [][]byte
}

// Process 从每路输入流中取dts最小的包，合并成一个access unit
//
// 不会阻塞。所有输入流都有包或已结束时才会处理；所有输入流都结束时回调一次 IMergeObserver.OnEos 。
// 处理某个nalu出错时，该nalu被丢弃，剩余的包继续处理，返回第一个错误。
//
func (s *Session) Process() (ProcessStatus, error) {
	if s.eosEmitted {
		return ProcessStatusEos, nil
	}
	if len(s.streams) == 0 {
		return ProcessStatusNotReady, nil
	}

	var minDts int64
	found := false
	nbEos := 0
	for _, ts := range s.streams {
		pkt := ts.src.PeekPacket()
		if pkt == nil {
			if ts.src.IsEos() {
				nbEos++
				continue
			}
			return ProcessStatusNotReady, nil
		}
		if !ts.configured {
			return ProcessStatusNotReady, nil
		}
		if !found || pkt.Dts < minDts {
			minDts = pkt.Dts
			found = true
		}
	}
	if nbEos == len(s.streams) {
		s.eosEmitted = true
		Log.Infof("[%s] all sources eos. stat=%+v", s.uniqueKey, s.Stat())
		s.observer.OnEos()
		return ProcessStatusEos, nil
	}

	var au accessUnit
	var firstErr error
	grid := s.layout.Grid()
	for i, ts := range s.streams {
		pkt := ts.src.PeekPacket()
		if pkt == nil || pkt.Dts != minDts {
			continue
		}
		if pkt.IsEmpty() {
			Log.Debugf("[%s] drop empty packet. idx=%d, %s", s.uniqueKey, i, pkt.DebugString())
			s.stat.DroppedPackets++
			ts.src.DropPacket()
			continue
		}
		if au.meta == nil {
			meta := *pkt
			au.meta = &meta
		}
		isLast := i == len(s.streams)-1
		err := h2645.IterateNaluAvccWithLength(pkt.Payload, ts.lengthSize, func(nal []byte) {
			if err := s.feedNalu(ts, nal, isLast, grid, &au); err != nil {
				s.stat.RewriteErrors++
				Log.Errorf("[%s] drop nalu. idx=%d, type=%s, err=%+v", s.uniqueKey, ts.idx, hevc.CalcNaluTypeReadable(nal), err)
				if firstErr == nil {
					firstErr = err
				}
			}
		})
		if err != nil {
			Log.Errorf("[%s] iterate nalu failed. idx=%d, err=%+v", s.uniqueKey, ts.idx, err)
			if firstErr == nil {
				firstErr = base.NewErrTileMergeNonCompliantBitstream(err)
			}
		}
		ts.src.DropPacket()
	}

	if len(au.slices) == 0 {
		// 没有输出，前缀sei留给之后的帧转发
		s.stat.DroppedNalus += uint64(len(au.seiPrefix) + len(au.seiSuffix))
		return ProcessStatusIdle, firstErr
	}
	s.emit(&au)
	return ProcessStatusOutput, firstErr
}

// feedNalu slice改写后加入au，前缀sei只转发第一个成功输出的，后缀sei只转发最后一路流的，参数集更新到流的上下文中，其他丢弃
func (s *Session) feedNalu(ts *tileStream, nal []byte, isLast bool, grid TileGrid, au *accessUnit) error {
	if len(nal) < 2 {
		s.stat.DroppedNalus++
		return nil
	}
	typ := hevc.CalcNaluType(nal)
	switch {
	case hevc.IsSliceNalu(typ):
		out, err := s.rewriteSlice(ts, nal)
		if err != nil {
			return err
		}
		au.slices = append(au.slices, auSlice{
			rank: ts.placement.Row*grid.NumColumns() + ts.placement.Col,
			nal:  out,
		})
	case typ == hevc.NaluTypeSei:
		if s.seiPrefixForwarded || len(au.seiPrefix) != 0 {
			s.stat.DroppedNalus++
			return nil
		}
		// nal引用输入包的内存，输入包在emit之前就被释放了
		au.seiPrefix = append(au.seiPrefix, append([]byte(nil), nal...))
	case typ == hevc.NaluTypeSeiSuffix && isLast:
		au.seiSuffix = append(au.seiSuffix, append([]byte(nil), nal...))
	case hevc.IsParameterSetNalu(typ):
		s.stat.DroppedNalus++
		if _, err := ts.ctx.ParseParameterSet(nal); err != nil {
			return base.NewErrTileMergeNonCompliantBitstream(err)
		}
	default:
		s.stat.DroppedNalus++
	}
	return nil
}

func (s *Session) rewriteSlice(ts *tileStream, nal []byte) ([]byte, error) {
	sh, err := ts.ctx.ParseSliceHeader(nal)
	if err != nil {
		if errors.Is(err, base.ErrHevcParameterSetNotFound) {
			return nil, base.NewErrTileMergeMissingParameterSet(err)
		}
		return nil, base.NewErrTileMergeNonCompliantBitstream(err)
	}
	_, sps, err := ts.ctx.GetPpsAndSps(sh.PpsId)
	if err != nil {
		return nil, base.NewErrTileMergeMissingParameterSet(err)
	}

	if !ts.addressComputed {
		ts.offset = s.layout.Offset(ts.placement)
		ts.addressComputed = true
		Log.Debugf("[%s] compute address. idx=%d, row=%d, col=%d, address=%d", s.uniqueKey, ts.idx, ts.placement.Row, ts.placement.Col, ts.offset.Address)
	}

	// 一个tile中有多个slice时，把原图像中的地址映射到输出图像中
	width, height := s.layout.Canvas()
	x := sh.SliceSegmentAddress % sps.PicWidthInCtbsY
	y := sh.SliceSegmentAddress / sps.PicWidthInCtbsY
	address := ts.offset.Address + y*ctus(width) + x

	out, misaligned, err := RewriteSliceHeader(nal, sh, ts.ctx, SliceRewriteParam{
		Address:               address,
		BaselineInitQpMinus26: s.baselineInitQpMinus26,
		CanvasWidth:           width,
		CanvasHeight:          height,
	})
	if err != nil {
		return nil, err
	}
	if misaligned {
		s.stat.MisalignedHeaders++
	}
	s.stat.SlicesRewritten++

	if ts.logDump.ShouldDump() {
		ts.logDump.Outf("[%s] rewrite slice. idx=%d, address=%d->%d, qp_delta=%d\nin:\n%sout:\n%s",
			s.uniqueKey, ts.idx, sh.SliceSegmentAddress, address, sh.SliceQpDelta, base.DumpHex(nal), base.DumpHex(out))
	}
	return out, nil
}

// emit slice按tile的光栅扫描顺序排列，同一个tile中的slice保持原来的顺序
func (s *Session) emit(au *accessUnit) {
	sort.SliceStable(au.slices, func(i, j int) bool {
		return au.slices[i].rank < au.slices[j].rank
	})

	n := 0
	for _, nal := range au.seiPrefix {
		n += outLengthSize + len(nal)
	}
	for _, item := range au.slices {
		n += outLengthSize + len(item.nal)
	}
	for _, nal := range au.seiSuffix {
		n += outLengthSize + len(nal)
	}
	payload := make([]byte, 0, n)
	for _, nal := range au.seiPrefix {
		payload = h2645.AppendNaluAvcc(payload, nal)
	}
	for _, item := range au.slices {
		payload = h2645.AppendNaluAvcc(payload, item.nal)
	}
	for _, nal := range au.seiSuffix {
		payload = h2645.AppendNaluAvcc(payload, nal)
	}

	if len(au.seiPrefix) != 0 {
		s.seiPrefixForwarded = true
	}
	pkt := *au.meta
	pkt.Payload = payload
	s.stat.AccessUnits++
	s.observer.OnPacket(pkt)
}
