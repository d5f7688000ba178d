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
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/q191201771/tilemerge/pkg/base"
	"github.com/q191201771/tilemerge/pkg/hevc"
)

// IPacketSource 一路输入流
//
// Session 每次最多只看每路流的一个包，处理完之后调用 DropPacket 。
type IPacketSource interface {
	// PeekPacket 当前没有包时返回nil
	PeekPacket() *base.AvPacket

	DropPacket()

	// IsEos 输入流已经结束，并且所有包都已经被取走
	IsEos() bool
}

type IMergeObserver interface {
	// OnDecoderConfig 输出流的hvcC，内容变化时才回调
	//
	// @param dcr: 回调结束后 Session 不再使用这块内存
	//
	OnDecoderConfig(dcr []byte, width, height uint32)

	// OnPacket 一个合并后的access unit，4字节长度前缀格式
	OnPacket(pkt base.AvPacket)

	// OnEos 所有输入流都结束时回调一次
	OnEos()
}

type SessionOption struct {
	// Layout 为nil时使用 GreedyLayout 。网格变化时 Session 在 ILayoutPolicy.Clone 的结果上修改，调用方传入后不应再使用
	Layout ILayoutPolicy

	MaxTileStreams int

	// UniqueKey 为空时自动生成
	UniqueKey string
}

var defaultSessionOption = SessionOption{
	MaxTileStreams: MaxTileStreams,
}

type ModSessionOption func(option *SessionOption)

// tileStream 一路输入流的状态，配置完成后放入网格中
type tileStream struct {
	idx     int
	src     IPacketSource
	logDump base.LogDump

	configured  bool
	width       uint32
	height      uint32
	lengthSize  int
	ctx         *hevc.Context
	fingerprint uint64

	placed    bool
	placement Placement

	// 网格变化后需要重新计算
	addressComputed bool
	offset          TileOffset
}

// Session 把多路tile流合并成一路开启了tile的流
//
// 非并发安全，所有方法需要在同一个协程中调用
type Session struct {
	uniqueKey string
	option    SessionOption
	observer  IMergeObserver
	layout    ILayoutPolicy

	streams []*tileStream

	// 第一个完成配置的流，输出的vps、sps、pps由它改写得到
	reference             *tileStream
	referenceDcr          []byte
	baselineInitQpMinus26 int32

	hasPublished         bool
	publishedFingerprint uint64

	seiPrefixForwarded bool
	eosEmitted         bool

	stat Stat
}

func NewSession(observer IMergeObserver, modOptions ...ModSessionOption) *Session {
	option := defaultSessionOption
	for _, fn := range modOptions {
		fn(&option)
	}
	if option.Layout == nil {
		option.Layout = NewGreedyLayout()
	}
	uk := option.UniqueKey
	if uk == "" {
		uk = base.GenUkTileMergeSession()
	}
	s := &Session{
		uniqueKey: uk,
		option:    option,
		observer:  observer,
		layout:    option.Layout,
	}
	Log.Infof("[%s] lifecycle new tile merge session. max=%d", uk, option.MaxTileStreams)
	return s
}

// AddSource
//
// @return 输入流的序号，后续 ConfigureSource 等使用。输出时tile的顺序与序号无关，由配置完成的顺序决定
//
func (s *Session) AddSource(src IPacketSource) (int, error) {
	if len(s.streams) >= s.option.MaxTileStreams {
		return -1, base.NewErrTileMergeCapacityExceeded(s.option.MaxTileStreams)
	}
	idx := len(s.streams)
	s.streams = append(s.streams, &tileStream{
		idx:     idx,
		src:     src,
		logDump: base.NewLogDump(Log, base.TileMergeLogDumpDebugMaxNum),
	})
	Log.Infof("[%s] add source. idx=%d", s.uniqueKey, idx)
	return idx, nil
}

// ConfigureSource 设置输入流的宽高以及hvcC
//
// 第一次调用时确定该流在网格中的位置，之后宽高不允许变化。hvcC内容没有变化时直接返回。
//
func (s *Session) ConfigureSource(idx int, width, height uint32, dcr []byte) error {
	ts, err := s.getStream(idx)
	if err != nil {
		return err
	}

	fingerprint := xxhash.Sum64(dcr)
	if ts.configured && ts.fingerprint == fingerprint && ts.width == width && ts.height == height {
		return nil
	}
	if ts.placed && (ts.width != width || ts.height != height) {
		return base.NewErrTileMergeGeometryChanged(idx, ts.width, ts.height, width, height)
	}

	record, err := hevc.ParseDecoderConfigurationRecord(dcr)
	if err != nil {
		return base.NewErrTileMergeNonCompliantBitstream(err)
	}
	ctx, ppsList, err := parseParameterSets(record)
	if err != nil {
		return err
	}
	if s.reference != nil && s.reference != ts {
		if err = checkCompatible(s.reference.ctx, ctx, ppsList); err != nil {
			return err
		}
	}

	// 在网格的拷贝上放置，新的网格和hvcC都改写成功后才提交，失败时session保持不变
	layout := s.layout
	placement := ts.placement
	if !ts.placed {
		layout = s.layout.Clone()
		if placement, err = layout.Place(TileGeometry{Width: width, Height: height}); err != nil {
			return err
		}
	}

	isReference := s.reference == nil || s.reference == ts
	referenceDcr := s.referenceDcr
	if isReference {
		referenceDcr = dcr
	}
	canvasWidth, canvasHeight := layout.Canvas()
	out, err := RewriteDecoderConfigurationRecord(referenceDcr, canvasWidth, canvasHeight, layout.Grid())
	if err != nil {
		return err
	}

	if !ts.placed {
		s.layout = layout
		ts.placed = true
		ts.placement = placement
		ts.width = width
		ts.height = height
		s.invalidateAddresses()
		Log.Infof("[%s] place tile. idx=%d, size=%dx%d, row=%d, col=%d", s.uniqueKey, idx, width, height, placement.Row, placement.Col)
	}

	ts.ctx = ctx
	ts.lengthSize = record.LengthSize()
	ts.fingerprint = fingerprint

	if isReference {
		pps, _ := ctx.GetPps(ppsList[0])
		s.reference = ts
		s.referenceDcr = append([]byte(nil), dcr...)
		s.baselineInitQpMinus26 = pps.InitQpMinus26
	}

	s.publishDecoderConfig(out, canvasWidth, canvasHeight)
	ts.configured = true
	return nil
}

// RemoveSource 不支持运行过程中移除输入流
func (s *Session) RemoveSource(idx int) error {
	if _, err := s.getStream(idx); err != nil {
		return err
	}
	return fmt.Errorf("%w. idx=%d", base.ErrTileMergeRemovalUnsupported, idx)
}

func (s *Session) UniqueKey() string {
	return s.uniqueKey
}

func (s *Session) Stat() Stat {
	ret := s.stat
	ret.UniqueKey = s.uniqueKey
	ret.NumSources = len(s.streams)
	ret.CanvasWidth, ret.CanvasHeight = s.layout.Canvas()
	return ret
}

// Dump 每个tile在输出图像中的位置
func (s *Session) Dump() string {
	var sb strings.Builder
	width, height := s.layout.Canvas()
	grid := s.layout.Grid()
	sb.WriteString(fmt.Sprintf("[%s] canvas=%dx%d, grid=%dx%d\n", s.uniqueKey, width, height, grid.NumColumns(), grid.NumRows()))
	sb.WriteString(fmt.Sprintf("%-4s %-4s %-4s %-6s %-6s %-6s %-6s %-8s\n", "idx", "row", "col", "x", "y", "width", "height", "address"))
	for _, ts := range s.streams {
		if !ts.placed {
			sb.WriteString(fmt.Sprintf("%-4d -\n", ts.idx))
			continue
		}
		offset := s.layout.Offset(ts.placement)
		sb.WriteString(fmt.Sprintf("%-4d %-4d %-4d %-6d %-6d %-6d %-6d %-8d\n",
			ts.idx, ts.placement.Row, ts.placement.Col, offset.X, offset.Y, ts.width, ts.height, offset.Address))
	}
	return sb.String()
}

// ---------------------------------------------------------------------------------------------------------------------

func (s *Session) getStream(idx int) (*tileStream, error) {
	if idx < 0 || idx >= len(s.streams) {
		return nil, base.NewErrTileMergeSourceNotFound(idx)
	}
	return s.streams[idx], nil
}

func (s *Session) invalidateAddresses() {
	for _, ts := range s.streams {
		ts.addressComputed = false
	}
}

// publishDecoderConfig 改写后的hvcC内容有变化时回调给上层
func (s *Session) publishDecoderConfig(out []byte, width, height uint32) {
	fingerprint := xxhash.Sum64(out)
	if s.hasPublished && fingerprint == s.publishedFingerprint {
		return
	}
	s.hasPublished = true
	s.publishedFingerprint = fingerprint
	s.stat.ConfigPublishes++
	Log.Infof("[%s] publish decoder config. canvas=%dx%d, len=%d", s.uniqueKey, width, height, len(out))
	s.observer.OnDecoderConfig(out, width, height)
}

// parseParameterSets 解析hvcC中的vps、sps、pps
//
// @return ppsList: pps id，按在hvcC中出现的顺序
//
func parseParameterSets(record *hevc.DecoderConfigurationRecord) (*hevc.Context, []uint32, error) {
	ctx := hevc.NewContext()
	var ppsList []uint32
	for _, nal := range record.ParameterSets() {
		if _, err := ctx.ParseParameterSet(nal); err != nil {
			return nil, nil, base.NewErrTileMergeNonCompliantBitstream(err)
		}
		if hevc.CalcNaluType(nal) == hevc.NaluTypePps {
			pps, _ := hevc.ParsePps(nal)
			ppsList = append(ppsList, pps.PpsId)
		}
	}
	if ctx.FirstSps() == nil || len(ppsList) == 0 {
		return nil, nil, base.NewErrTileMergeMissingParameterSet(errors.New("no sps or pps in decoder configuration record"))
	}
	for _, id := range ppsList {
		_, sps, err := ctx.GetPpsAndSps(id)
		if err != nil {
			return nil, nil, base.NewErrTileMergeMissingParameterSet(err)
		}
		if sps.CtbSizeY != CtuSize {
			return nil, nil, base.NewErrHevcUnsupported(fmt.Sprintf("ctb size %d", sps.CtbSizeY))
		}
	}
	return ctx, ppsList, nil
}
