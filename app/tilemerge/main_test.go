// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/q191201771/naza/pkg/assert"
	"github.com/q191201771/tilemerge/pkg/h2645"
	"github.com/q191201771/tilemerge/pkg/innertest"
	"github.com/q191201771/tilemerge/pkg/tilemerge"
)

// 两路512x256的annexb文件上下合并成512x512
func TestRun(t *testing.T) {
	dir := t.TempDir()
	ts := newTestStream(512, 256)
	var inputs []InputConfig
	for i := 0; i < 2; i++ {
		seed := byte(i) * 0x40
		aus := [][][]byte{
			append(ts.paramSets(), ts.slice(seed+0x10, 0)),
			{ts.slice(seed+0x20, 0)},
		}
		filename := filepath.Join(dir, "tile"+string(rune('0'+i))+".h265")
		err := os.WriteFile(filename, joinAccessUnits(aus), 0644)
		assert.Equal(t, nil, err)
		inputs = append(inputs, InputConfig{Path: filename, Format: FormatAnnexb, Fps: 25})
	}
	output := filepath.Join(dir, "merged.h265")
	config := &Config{
		Inputs:         inputs,
		Output:         OutputConfig{Path: output, Format: FormatAnnexb},
		MaxTileStreams: tilemerge.MaxTileStreams,
	}
	err := run(context.Background(), config)
	assert.Equal(t, nil, err)

	dstSps := innertest.DefaultSpsParam(512, 512)
	dstPps := innertest.DefaultPpsParam()
	dstPps.Tiles = &innertest.TilesParam{
		NumTileRowsMinus1:                1,
		RowHeightMinus1:                  []uint32{3},
		LoopFilterAcrossTilesEnabledFlag: 1,
	}
	params := [][]byte{innertest.BuildVps(), innertest.BuildSps(dstSps), innertest.BuildPps(dstPps)}
	expectedSlice := func(seed byte, address uint32) []byte {
		nal, _ := innertest.BuildSlice(dstSps, dstPps, testIdr(seed, address))
		return nal
	}

	// 每个access unit都是irap，都带上参数集，第二路的slice地址为 4行CTU * 8
	var expected [][]byte
	for _, seed := range []byte{0x10, 0x20} {
		expected = append(expected, params...)
		expected = append(expected, expectedSlice(seed, 0), expectedSlice(seed+0x40, 32))
	}
	b, err := os.ReadFile(output)
	assert.Equal(t, nil, err)
	assert.Equal(t, expected, h2645.SplitNaluAnnexb(b))
}

func TestRunError(t *testing.T) {
	dir := t.TempDir()
	config := &Config{
		Inputs:         []InputConfig{{Path: filepath.Join(dir, "not_exist.h265"), Format: FormatAnnexb, Fps: 25}},
		Output:         OutputConfig{Path: filepath.Join(dir, "merged.h265"), Format: FormatAnnexb},
		MaxTileStreams: tilemerge.MaxTileStreams,
	}
	err := run(context.Background(), config)
	assert.IsNotNil(t, err)

	// 宽度不同的两路无法放到同一列
	a := newTestStream(512, 256)
	b := newTestStream(256, 256)
	config.Inputs = nil
	for i, s := range []*testStream{a, b} {
		filename := filepath.Join(dir, "tile"+string(rune('0'+i))+".h265")
		err = os.WriteFile(filename, joinAccessUnits([][][]byte{append(s.paramSets(), s.slice(0x10, 0))}), 0644)
		assert.Equal(t, nil, err)
		config.Inputs = append(config.Inputs, InputConfig{Path: filename, Format: FormatAnnexb, Fps: 25})
	}
	err = run(context.Background(), config)
	assert.IsNotNil(t, err)
}
