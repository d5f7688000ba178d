// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package main

import (
	"bufio"
	"context"
	"io"
	"os"

	ts "github.com/asticode/go-astits"
	log "github.com/q191201771/naza/pkg/nazalog"
	"github.com/q191201771/tilemerge/pkg/base"
	"github.com/q191201771/tilemerge/pkg/h2645"
	"github.com/q191201771/tilemerge/pkg/hevc"
	"github.com/q191201771/tilemerge/pkg/tilemerge"
)

const (
	tsVideoPid      uint16 = 0x100
	tsVideoStreamId uint8  = 0xe0
)

// ISink 合并结果的输出
type ISink interface {
	tilemerge.IMergeObserver

	// Err 写入过程中的第一个错误
	Err() error

	Close() error
}

// annexbWriter 把合并后的access unit转换成annexb格式，参数集变化后在下一个access unit之前写入
type annexbWriter struct {
	uniqueKey   string
	paramSets   [][]byte
	needParams  bool
	frameCount  int
	configCount int
}

func (aw *annexbWriter) onDecoderConfig(dcr []byte, width, height uint32) {
	record, err := hevc.ParseDecoderConfigurationRecord(dcr)
	if err != nil {
		log.Errorf("[%s] parse decoder config failed. err=%+v", aw.uniqueKey, err)
		return
	}
	// record引用dcr的内存，需要拷贝
	aw.paramSets = aw.paramSets[:0]
	for _, nal := range record.ParameterSets() {
		aw.paramSets = append(aw.paramSets, append([]byte(nil), nal...))
	}
	aw.needParams = true
	aw.configCount++
	log.Infof("[%s] output config. size=%dx%d, count=%d", aw.uniqueKey, width, height, aw.configCount)
}

// toAnnexb
//
// @return isKey: 包含irap slice
//
func (aw *annexbWriter) toAnnexb(pkt base.AvPacket) (out []byte, isKey bool, err error) {
	nalus, err := h2645.SplitNaluAvccWithLength(pkt.Payload, 4)
	if err != nil {
		return nil, false, err
	}
	for _, nal := range nalus {
		if hevc.IsIrapNalu(hevc.CalcNaluType(nal)) {
			isKey = true
		}
	}
	if aw.needParams || isKey {
		nalus = append(append([][]byte(nil), aw.paramSets...), nalus...)
		aw.needParams = false
	}
	aw.frameCount++
	return h2645.JoinNaluAnnexb(nalus...), isKey, nil
}

// AnnexbSink 输出h265裸流文件
type AnnexbSink struct {
	annexbWriter
	fp  *os.File
	w   *bufio.Writer
	err error
}

func NewAnnexbSink(path string) (*AnnexbSink, error) {
	fp, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &AnnexbSink{
		annexbWriter: annexbWriter{uniqueKey: base.GenUkTileSink()},
		fp:           fp,
		w:            bufio.NewWriter(fp),
	}, nil
}

func (s *AnnexbSink) OnDecoderConfig(dcr []byte, width, height uint32) {
	s.onDecoderConfig(dcr, width, height)
}

func (s *AnnexbSink) OnPacket(pkt base.AvPacket) {
	if s.err != nil {
		return
	}
	b, _, err := s.toAnnexb(pkt)
	if err != nil {
		s.err = err
		return
	}
	_, s.err = s.w.Write(b)
}

func (s *AnnexbSink) OnEos() {
	log.Infof("[%s] output eos. frames=%d", s.uniqueKey, s.frameCount)
}

func (s *AnnexbSink) Err() error {
	return s.err
}

func (s *AnnexbSink) Close() error {
	if err := s.w.Flush(); err != nil {
		_ = s.fp.Close()
		return err
	}
	return s.fp.Close()
}

// TsSink 输出mpegts文件，一个h265轨道
type TsSink struct {
	annexbWriter
	fp    *os.File
	w     *bufio.Writer
	muxer *ts.Muxer
	err   error
}

func NewTsSink(ctx context.Context, path string) (*TsSink, error) {
	fp, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := bufio.NewWriter(fp)
	s, err := newTsSink(ctx, w)
	if err != nil {
		_ = fp.Close()
		return nil, err
	}
	s.fp = fp
	s.w = w
	return s, nil
}

func newTsSink(ctx context.Context, w io.Writer) (*TsSink, error) {
	muxer := ts.NewMuxer(ctx, w)
	if err := muxer.AddElementaryStream(ts.PMTElementaryStream{
		ElementaryPID: tsVideoPid,
		StreamType:    ts.StreamTypeH265Video,
	}); err != nil {
		return nil, err
	}
	muxer.SetPCRPID(tsVideoPid)
	return &TsSink{
		annexbWriter: annexbWriter{uniqueKey: base.GenUkTileSink()},
		muxer:        muxer,
	}, nil
}

func (s *TsSink) OnDecoderConfig(dcr []byte, width, height uint32) {
	s.onDecoderConfig(dcr, width, height)
}

func (s *TsSink) OnPacket(pkt base.AvPacket) {
	if s.err != nil {
		return
	}
	b, isKey, err := s.toAnnexb(pkt)
	if err != nil {
		s.err = err
		return
	}
	_, s.err = s.muxer.WriteData(&ts.MuxerData{
		PID: tsVideoPid,
		AdaptationField: &ts.PacketAdaptationField{
			RandomAccessIndicator: isKey,
		},
		PES: &ts.PESData{
			Header: &ts.PESHeader{
				OptionalHeader: &ts.PESOptionalHeader{
					MarkerBits:      2,
					PTSDTSIndicator: ts.PTSDTSIndicatorBothPresent,
					PTS:             &ts.ClockReference{Base: pkt.Pts},
					DTS:             &ts.ClockReference{Base: pkt.Dts},
				},
				StreamID: tsVideoStreamId,
			},
			Data: b,
		},
	})
}

func (s *TsSink) OnEos() {
	log.Infof("[%s] output eos. frames=%d", s.uniqueKey, s.frameCount)
}

func (s *TsSink) Err() error {
	return s.err
}

func (s *TsSink) Close() error {
	if s.w == nil {
		return nil
	}
	if err := s.w.Flush(); err != nil {
		_ = s.fp.Close()
		return err
	}
	return s.fp.Close()
}
