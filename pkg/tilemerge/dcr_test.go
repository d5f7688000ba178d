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
	"testing"

	"github.com/q191201771/naza/pkg/assert"
	"github.com/q191201771/tilemerge/pkg/base"
	"github.com/q191201771/tilemerge/pkg/hevc"
	"github.com/q191201771/tilemerge/pkg/innertest"
)

func buildTestDcr(t *testing.T, sp innertest.SpsParam, pp innertest.PpsParam, lengthSize int) []byte {
	record, err := hevc.BuildDecoderConfigurationRecord(
		[][]byte{innertest.BuildVps()},
		[][]byte{innertest.BuildSps(sp)},
		[][]byte{innertest.BuildPps(pp)},
	)
	assert.Equal(t, nil, err)
	record.LengthSizeMinusOne = uint8(lengthSize - 1)
	return record.Pack()
}

func TestRewriteDecoderConfigurationRecord(t *testing.T) {
	pp := innertest.DefaultPpsParam()
	dcr := buildTestDcr(t, innertest.DefaultSpsParam(512, 256), pp, 2)
	orig := append([]byte(nil), dcr...)

	out, err := RewriteDecoderConfigurationRecord(dcr, 1024, 712, grid2x3)
	assert.Equal(t, nil, err)
	assert.Equal(t, orig, dcr)

	record, err := hevc.ParseDecoderConfigurationRecord(out)
	assert.Equal(t, nil, err)
	assert.Equal(t, 4, record.LengthSize())
	assert.Equal(t, uint8(123), record.GeneralLevelIdc)

	assert.Equal(t, [][]byte{innertest.BuildVps()}, record.Nalus(hevc.NaluTypeVps))
	assert.Equal(t, [][]byte{innertest.BuildSps(innertest.DefaultSpsParam(1024, 712))}, record.Nalus(hevc.NaluTypeSps))
	expectedPps := pp
	expectedPps.Tiles = tiles2x3
	assert.Equal(t, [][]byte{innertest.BuildPps(expectedPps)}, record.Nalus(hevc.NaluTypePps))

	sps, err := hevc.ParseSps(record.Nalus(hevc.NaluTypeSps)[0])
	assert.Equal(t, nil, err)
	assert.Equal(t, uint32(1024), sps.Width())
	assert.Equal(t, uint32(712), sps.Height())

	// 使用同样的参数再改写一次，结果不变
	again, err := RewriteDecoderConfigurationRecord(out, 1024, 712, grid2x3)
	assert.Equal(t, nil, err)
	assert.Equal(t, out, again)
}

func TestRewriteDecoderConfigurationRecordError(t *testing.T) {
	dcr := buildTestDcr(t, innertest.DefaultSpsParam(512, 256), innertest.DefaultPpsParam(), 4)

	_, err := RewriteDecoderConfigurationRecord(dcr[:10], 1024, 512, grid2x3)
	assert.Equal(t, true, errors.Is(err, base.ErrTileMergeNonCompliantBitstream))

	_, err = RewriteDecoderConfigurationRecord(dcr, 1024, 512, TileGrid{
		ColumnWidths: []uint32{500, 524},
		RowHeights:   []uint32{512},
	})
	assert.Equal(t, true, errors.Is(err, base.ErrTileMergeTileNotCtuAligned))

	_, err = RewriteDecoderConfigurationRecord(dcr, 0, 512, grid2x3)
	assert.Equal(t, true, errors.Is(err, base.ErrHevc))
}
