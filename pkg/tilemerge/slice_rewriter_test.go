// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package tilemerge

import (
	"bytes"
	"errors"
	"testing"

	"github.com/q191201771/naza/pkg/assert"
	"github.com/q191201771/tilemerge/pkg/base"
	"github.com/q191201771/tilemerge/pkg/h2645"
	"github.com/q191201771/tilemerge/pkg/hevc"
	"github.com/q191201771/tilemerge/pkg/innertest"
)

func newTestContext(t *testing.T, sp innertest.SpsParam, pp innertest.PpsParam) *hevc.Context {
	ctx := hevc.NewContext()
	for _, nal := range [][]byte{innertest.BuildVps(), innertest.BuildSps(sp), innertest.BuildPps(pp)} {
		_, err := ctx.ParseParameterSet(nal)
		assert.Equal(t, nil, err)
	}
	return ctx
}

type sliceRewriteCase struct {
	name  string
	pps   innertest.PpsParam
	slice innertest.SliceParam

	address  uint32
	baseline int32
}

func sliceRewriteCases() []sliceRewriteCase {
	var cases []sliceRewriteCase
	{
		c := sliceRewriteCase{
			name:    "idr",
			pps:     innertest.DefaultPpsParam(),
			address: 72,
		}
		c.pps.InitQpMinus26 = 2
		c.baseline = -1
		c.slice = innertest.SliceParam{
			NaluType:                   hevc.NaluTypeSliceIdr,
			FirstSliceSegmentInPicFlag: 1,
			SliceType:                  innertest.SliceTypeI,
			SaoLuma:                    1,
			SaoChroma:                  1,
			SliceQpDelta:               5,
			LoopFilterAcrossSlices:     1,
			Payload:                    innertest.Payload(100, 0x21),
		}
		cases = append(cases, c)
	}
	{
		// 原图像第一个slice，输出到左上角的tile
		c := sliceRewriteCase{
			name:    "origin",
			pps:     innertest.DefaultPpsParam(),
			address: 0,
		}
		c.slice = innertest.SliceParam{
			NaluType:                   hevc.NaluTypeSliceCranut,
			FirstSliceSegmentInPicFlag: 1,
			NoOutputOfPriorPicsFlag:    1,
			SliceType:                  innertest.SliceTypeI,
			PicOrderCntLsb:             9,
			ShortTermRefPicSetSpsFlag:  1,
			SliceQpDelta:               -3,
			Payload:                    innertest.Payload(33, 0x02),
		}
		cases = append(cases, c)
	}
	{
		// 原码流有entry point以及slice header extension
		c := sliceRewriteCase{
			name:    "entry_point",
			pps:     innertest.DefaultPpsParam(),
			address: 100,
		}
		c.pps.EntropyCodingSync = true
		c.pps.SliceSegmentHeaderExtensionPresent = true
		c.pps.InitQpMinus26 = -4
		c.baseline = 3
		c.slice = innertest.SliceParam{
			NaluType:                  hevc.NaluTypeSliceTrailR,
			SliceSegmentAddress:       8,
			SliceType:                 innertest.SliceTypeP,
			PicOrderCntLsb:            200,
			ShortTermRefPicSetSpsFlag: 1,
			SliceTemporalMvpEnabled:   1,
			SaoLuma:                   1,
			CabacInitFlag:             1,
			FiveMinusMaxNumMergeCand:  2,
			SliceQpDelta:              1,
			OffsetLenMinus1:           11,
			EntryPointOffsets:         []uint32{1000, 2000, 3000},
			HeaderExtension:           []byte{0xAA, 0x00, 0x00},
			Payload:                   innertest.Payload(80, 0x40),
		}
		cases = append(cases, c)
	}
	{
		// dependent slice segment没有slice_qp_delta
		c := sliceRewriteCase{
			name:     "dependent",
			pps:      innertest.DefaultPpsParam(),
			address:  27,
			baseline: 10,
		}
		c.pps.DependentSliceSegmentsEnabled = true
		c.slice = innertest.SliceParam{
			NaluType:                  hevc.NaluTypeSliceTrailN,
			SliceSegmentAddress:       11,
			DependentSliceSegmentFlag: 1,
			Payload:                   innertest.Payload(20, 0x7F),
		}
		cases = append(cases, c)
	}
	return cases
}

// 输出的slice与按输出参数集直接构造的slice逐字节相同
func TestRewriteSliceHeader(t *testing.T) {
	srcSps := innertest.DefaultSpsParam(512, 256)
	srcSps.StRps = []innertest.RpsParam{
		{DeltaPocS0Minus1: []uint32{0}, UsedByCurrPicS0: []uint8{1}},
	}
	dstSps := srcSps
	dstSps.Width = 1024
	dstSps.Height = 512

	for _, c := range sliceRewriteCases() {
		ctx := newTestContext(t, srcSps, c.pps)
		nal, _ := innertest.BuildSlice(srcSps, c.pps, c.slice)
		sh, err := ctx.ParseSliceHeader(nal)
		assert.Equal(t, nil, err, c.name)

		out, misaligned, err := RewriteSliceHeader(nal, sh, ctx, SliceRewriteParam{
			Address:               c.address,
			BaselineInitQpMinus26: c.baseline,
			CanvasWidth:           1024,
			CanvasHeight:          512,
		})
		assert.Equal(t, nil, err, c.name)
		assert.Equal(t, false, misaligned, c.name)

		dstPps := c.pps
		dstPps.Tiles = tiles2x3
		expected := c.slice
		expected.SliceSegmentAddress = c.address
		expected.FirstSliceSegmentInPicFlag = 0
		if c.address == 0 {
			expected.FirstSliceSegmentInPicFlag = 1
		}
		if c.slice.DependentSliceSegmentFlag == 0 {
			expected.SliceQpDelta = c.pps.InitQpMinus26 + c.slice.SliceQpDelta - c.baseline
		}
		expected.EntryPointOffsets = nil
		expected.HeaderExtension = nil
		expectedNal, marks := innertest.BuildSlice(dstSps, dstPps, expected)
		assert.Equal(t, expectedNal, out, c.name)

		// 使用输出的参数集解析
		dstCtx := newTestContext(t, dstSps, dstPps)
		outSh, err := dstCtx.ParseSliceHeader(out)
		assert.Equal(t, nil, err, c.name)
		assert.Equal(t, c.address, outSh.SliceSegmentAddress, c.name)
		assert.Equal(t, expected.SliceQpDelta, outSh.SliceQpDelta, c.name)
		assert.Equal(t, uint32(0), outSh.NumEntryPointOffsets, c.name)
		assert.Equal(t, marks.HeaderEndPos, outSh.Offsets.HeaderEndBits, c.name)

		rbsp := h2645.RemoveEmulationPrevention(out)
		assert.Equal(t, c.slice.Payload, rbsp[marks.PayloadBytePos:], c.name)
	}
}

func TestRewriteSliceHeaderMisaligned(t *testing.T) {
	sp := innertest.DefaultSpsParam(512, 256)
	pp := innertest.DefaultPpsParam()
	ctx := newTestContext(t, sp, pp)
	s := innertest.SliceParam{
		NaluType:                   hevc.NaluTypeSliceIdr,
		FirstSliceSegmentInPicFlag: 1,
		SliceType:                  innertest.SliceTypeI,
		Payload:                    innertest.Payload(16, 0x33),
	}
	nal, marks := innertest.BuildSlice(sp, pp, s)

	// 把alignment_bit_equal_to_one改成0
	rbsp := h2645.RemoveEmulationPrevention(nal)
	rbsp[marks.HeaderEndPos/8] &^= 0x80 >> (marks.HeaderEndPos % 8)
	bad := h2645.AddEmulationPrevention(rbsp)

	sh, err := ctx.ParseSliceHeader(bad)
	assert.Equal(t, nil, err)
	out, misaligned, err := RewriteSliceHeader(bad, sh, ctx, SliceRewriteParam{})
	assert.Equal(t, nil, err)
	assert.Equal(t, true, misaligned)

	// 对齐位按1写出，输出开启了tile，多了num_entry_point_offsets
	dstPps := pp
	dstPps.Tiles = tiles2x3
	expected, _ := innertest.BuildSlice(sp, dstPps, s)
	assert.Equal(t, expected, out)
	assert.Equal(t, false, bytes.Equal(nal, out))
}

func TestRewriteSliceHeaderError(t *testing.T) {
	sp := innertest.DefaultSpsParam(512, 256)
	pp := innertest.DefaultPpsParam()
	ctx := newTestContext(t, sp, pp)
	s := innertest.SliceParam{
		NaluType:                   hevc.NaluTypeSliceIdr,
		FirstSliceSegmentInPicFlag: 1,
		SliceType:                  innertest.SliceTypeI,
		Payload:                    innertest.Payload(16, 0x33),
	}
	nal, _ := innertest.BuildSlice(sp, pp, s)
	sh, err := ctx.ParseSliceHeader(nal)
	assert.Equal(t, nil, err)

	// 地址超出输出图像
	_, _, err = RewriteSliceHeader(nal, sh, ctx, SliceRewriteParam{Address: 128, CanvasWidth: 1024, CanvasHeight: 512})
	assert.Equal(t, true, errors.Is(err, base.ErrHevc))
	_, _, err = RewriteSliceHeader(nal, sh, ctx, SliceRewriteParam{Address: 32})
	assert.Equal(t, true, errors.Is(err, base.ErrHevc))
	_, _, err = RewriteSliceHeader(nal, sh, ctx, SliceRewriteParam{Address: 31})
	assert.Equal(t, nil, err)

	// slice引用的pps不存在
	missing := *sh
	missing.PpsId = 5
	_, _, err = RewriteSliceHeader(nal, &missing, ctx, SliceRewriteParam{})
	assert.Equal(t, true, errors.Is(err, base.ErrTileMergeMissingParameterSet))
}
