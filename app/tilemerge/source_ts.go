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
	"errors"
	"fmt"
	"io"
	"os"

	ts "github.com/asticode/go-astits"
	log "github.com/q191201771/naza/pkg/nazalog"
	"github.com/q191201771/tilemerge/pkg/base"
	"github.com/q191201771/tilemerge/pkg/h2645"
)

// OpenTsSource 读取mpegts文件中第一个h265轨道，每个pes为一个access unit
func OpenTsSource(ctx context.Context, path string) (*TileSource, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	return newTsSource(ctx, path, bufio.NewReader(fp))
}

func newTsSource(ctx context.Context, path string, r io.Reader) (*TileSource, error) {
	s := &TileSource{
		uniqueKey: base.GenUkTileSource(),
		path:      path,
	}

	demuxer := ts.NewDemuxer(ctx, r)
	var hevcPid uint16
	found := false
	var aus []accessUnit
	for {
		d, err := demuxer.NextData()
		if err != nil {
			if errors.Is(err, ts.ErrNoMorePackets) {
				break
			}
			return nil, err
		}

		if d.PMT != nil && !found {
			for _, es := range d.PMT.ElementaryStreams {
				if es.StreamType == ts.StreamTypeH265Video {
					hevcPid = es.ElementaryPID
					found = true
					log.Debugf("[%s] found hevc track. path=%s, pid=%d", s.uniqueKey, path, hevcPid)
					break
				}
			}
			continue
		}

		if d.PES == nil || !found || d.FirstPacket == nil || d.FirstPacket.Header.PID != hevcPid {
			continue
		}
		oh := d.PES.Header.OptionalHeader
		if oh == nil || oh.PTS == nil {
			log.Warnf("[%s] pes without pts. path=%s", s.uniqueKey, path)
			continue
		}
		au := accessUnit{
			pts:   oh.PTS.Base,
			dts:   oh.PTS.Base,
			nalus: h2645.SplitNaluAnnexb(d.PES.Data),
		}
		if oh.DTS != nil {
			au.dts = oh.DTS.Base
		}
		aus = append(aus, au)
	}

	if !found || len(aus) == 0 {
		return nil, fmt.Errorf("%w. path=%s", base.ErrSourceNoHevcTrack, path)
	}
	if err := s.init(aus); err != nil {
		return nil, err
	}
	return s, nil
}
