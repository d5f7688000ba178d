// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package hevc

import (
	"bytes"
	"errors"
	"testing"

	"github.com/q191201771/naza/pkg/assert"
	"github.com/q191201771/tilemerge/pkg/base"
	"github.com/q191201771/tilemerge/pkg/h2645"
	"github.com/q191201771/tilemerge/pkg/innertest"
)

type sliceCase struct {
	name  string
	sps   innertest.SpsParam
	pps   innertest.PpsParam
	slice innertest.SliceParam
}

func newSliceContext(t *testing.T, sp innertest.SpsParam, pp innertest.PpsParam) *Context {
	ctx := NewContext()
	for _, nal := range [][]byte{innertest.BuildVps(), innertest.BuildSps(sp), innertest.BuildPps(pp)} {
		_, err := ctx.ParseParameterSet(nal)
		assert.Equal(t, nil, err)
	}
	return ctx
}

func sliceCases() []sliceCase {
	var cases []sliceCase

	// IDR，I slice，整幅图像的第一个slice
	{
		c := sliceCase{
			name: "idr",
			sps:  innertest.DefaultSpsParam(1920, 1080),
			pps:  innertest.DefaultPpsParam(),
		}
		c.slice = innertest.SliceParam{
			NaluType:                   NaluTypeSliceIdr,
			FirstSliceSegmentInPicFlag: 1,
			SliceType:                  SliceTypeI,
			SaoLuma:                    1,
			SaoChroma:                  1,
			SliceQpDelta:               5,
			LoopFilterAcrossSlices:     1,
			Payload:                    innertest.Payload(64, 0x11),
		}
		cases = append(cases, c)
	}

	// P slice，使用sps中的rps，覆盖参考帧个数，collocated_ref_idx，deblocking override
	{
		c := sliceCase{
			name: "p",
			sps:  innertest.DefaultSpsParam(1920, 1080),
			pps:  innertest.DefaultPpsParam(),
		}
		c.sps.StRps = []innertest.RpsParam{
			{DeltaPocS0Minus1: []uint32{0, 0}, UsedByCurrPicS0: []uint8{1, 1}},
		}
		c.slice = innertest.SliceParam{
			NaluType:                  NaluTypeSliceTrailR,
			SliceSegmentAddress:       77,
			SliceType:                 SliceTypeP,
			PicOrderCntLsb:            123,
			ShortTermRefPicSetSpsFlag: 1,
			SliceTemporalMvpEnabled:   1,
			SaoLuma:                   1,
			NumRefIdxActiveOverride:   true,
			NumRefIdxL0ActiveMinus1:   1,
			CabacInitFlag:             1,
			CollocatedRefIdx:          1,
			FiveMinusMaxNumMergeCand:  3,
			SliceQpDelta:              -4,
			DeblockingFilterOverride:  1,
			SliceBetaOffsetDiv2:       2,
			SliceTcOffsetDiv2:         -1,
			LoopFilterAcrossSlices:    0,
			Payload:                   innertest.Payload(100, 0x20),
		}
		cases = append(cases, c)
	}

	// B slice，slice header中的rps从sps中预测，长期参考帧，参考列表修改，加权预测，
	// entry point以及slice header extension
	{
		c := sliceCase{
			name: "b",
			sps:  innertest.DefaultSpsParam(640, 384),
			pps:  innertest.DefaultPpsParam(),
		}
		c.sps.StRps = []innertest.RpsParam{
			{
				DeltaPocS0Minus1: []uint32{0, 1},
				UsedByCurrPicS0:  []uint8{1, 1},
				DeltaPocS1Minus1: []uint32{0},
				UsedByCurrPicS1:  []uint8{0},
			},
			{
				DeltaPocS0Minus1: []uint32{3},
				UsedByCurrPicS0:  []uint8{1},
			},
		}
		c.sps.LongTermRefPicsPresent = true
		c.sps.UsedByCurrPicLtSpsFlag = []uint8{1, 0, 1}

		c.pps.DependentSliceSegmentsEnabled = true
		c.pps.OutputFlagPresent = true
		c.pps.NumExtraSliceHeaderBits = 2
		c.pps.SliceChromaQpOffsetsPresent = true
		c.pps.WeightedBipred = true
		c.pps.TransformSkip = true
		c.pps.Tiles = &innertest.TilesParam{
			NumTileColumnsMinus1: 1,
			UniformSpacing:       true,
		}
		c.pps.ListsModificationPresent = true
		c.pps.SliceSegmentHeaderExtensionPresent = true
		c.pps.RangeExtension = true
		c.pps.ChromaQpOffsetList = [][2]int32{{1, -1}}

		// 以第0个rps为参考，deltaRps为+2，得到S0{-1}，S1{1, 2, 3}，全部used
		rps := innertest.RpsParam{
			InterRefPicSetPredictionFlag: true,
			DeltaIdxMinus1:               1,
			AbsDeltaRpsMinus1:            1,
			UsedByCurrPicFlag:            []uint8{1, 1, 1, 1},
			UseDeltaFlag:                 []uint8{1, 1, 1, 1},
		}
		c.slice = innertest.SliceParam{
			NaluType:                  NaluTypeSliceTrailN,
			SliceSegmentAddress:       5,
			SliceType:                 SliceTypeB,
			PicOutputFlag:             1,
			PicOrderCntLsb:            9,
			ShortTermRefPicSetSpsFlag: 0,
			StRps:                     &rps,
			NumLongTermSps:            1,
			LongTerm: []innertest.LongTermParam{
				{LtIdxSps: 2},
				{PocLsbLt: 100, UsedByCurrPicLtFlag: 1, DeltaPocMsbPresentFlag: 1, DeltaPocMsbCycleLt: 3},
			},
			SliceTemporalMvpEnabled:  1,
			SaoChroma:                1,
			NumRefIdxActiveOverride:  true,
			NumRefIdxL0ActiveMinus1:  2,
			NumRefIdxL1ActiveMinus1:  1,
			NumPicTotalCurr:          6,
			ListEntryL0:              []uint32{5, 0, 3},
			ListEntryL1:              []uint32{1, 2},
			MvdL1ZeroFlag:            1,
			CollocatedFromL0Flag:     0,
			CollocatedRefIdx:         1,
			PredWeight: &innertest.PredWeightParam{
				LumaLog2WeightDenom:        6,
				DeltaChromaLog2WeightDenom: -1,
				LumaWeightL0Flag:           []uint8{1, 0, 1},
				ChromaWeightL0Flag:         []uint8{0, 1, 1},
				LumaWeightL1Flag:           []uint8{0, 1},
				ChromaWeightL1Flag:         []uint8{1, 0},
			},
			FiveMinusMaxNumMergeCand:    1,
			SliceQpDelta:                -12,
			SliceCbQpOffset:             2,
			SliceCrQpOffset:             -2,
			CuChromaQpOffsetEnabledFlag: 1,
			LoopFilterAcrossSlices:      1,
			OffsetLenMinus1:             11,
			EntryPointOffsets:           []uint32{100, 200, 300},
			HeaderExtension:             []byte{0xAB, 0xCD},
			Payload:                     innertest.Payload(80, 0x30),
		}
		cases = append(cases, c)
	}

	// dependent slice segment，没有slice_qp_delta
	{
		c := sliceCase{
			name: "dependent",
			sps:  innertest.DefaultSpsParam(1920, 1080),
			pps:  innertest.DefaultPpsParam(),
		}
		c.pps.DependentSliceSegmentsEnabled = true
		c.pps.EntropyCodingSync = true
		c.slice = innertest.SliceParam{
			NaluType:                  NaluTypeSliceTrailR,
			DependentSliceSegmentFlag: 1,
			SliceSegmentAddress:       12,
			OffsetLenMinus1:           4,
			EntryPointOffsets:         []uint32{7},
			Payload:                   innertest.Payload(40, 0x40),
		}
		cases = append(cases, c)
	}

	// CRA，非IDR的I slice同样携带poc以及rps
	{
		c := sliceCase{
			name: "cra",
			sps:  innertest.DefaultSpsParam(1280, 720),
			pps:  innertest.DefaultPpsParam(),
		}
		c.slice = innertest.SliceParam{
			NaluType:                   NaluTypeSliceCranut,
			FirstSliceSegmentInPicFlag: 1,
			NoOutputOfPriorPicsFlag:    1,
			SliceType:                  SliceTypeI,
			PicOrderCntLsb:             255,
			StRps:                      &innertest.RpsParam{DeltaPocS0Minus1: []uint32{0}, UsedByCurrPicS0: []uint8{0}},
			SliceQpDelta:               0,
			DeblockingFilterOverride:   1,
			SliceDeblockingDisabled:    1,
			Payload:                    innertest.Payload(33, 0x50),
		}
		cases = append(cases, c)
	}

	return cases
}

func TestParseSliceHeader(t *testing.T) {
	for _, c := range sliceCases() {
		ctx := newSliceContext(t, c.sps, c.pps)
		nal, marks := innertest.BuildSlice(c.sps, c.pps, c.slice)

		sh, err := ctx.ParseSliceHeader(nal)
		assert.Equal(t, nil, err, c.name)
		assert.Equal(t, c.slice.NaluType, sh.NaluType, c.name)
		assert.Equal(t, c.slice.FirstSliceSegmentInPicFlag, sh.FirstSliceSegmentInPicFlag, c.name)
		assert.Equal(t, c.slice.NoOutputOfPriorPicsFlag, sh.NoOutputOfPriorPicsFlag, c.name)
		assert.Equal(t, c.slice.DependentSliceSegmentFlag, sh.DependentSliceSegmentFlag, c.name)
		assert.Equal(t, c.slice.SliceSegmentAddress, sh.SliceSegmentAddress, c.name)
		assert.Equal(t, c.slice.SliceQpDelta, sh.SliceQpDelta, c.name)
		assert.Equal(t, uint32(len(c.slice.EntryPointOffsets)), sh.NumEntryPointOffsets, c.name)
		assert.Equal(t, uint32(len(c.slice.HeaderExtension)), sh.SliceSegmentHeaderExtensionLength, c.name)
		if c.slice.DependentSliceSegmentFlag == 0 {
			assert.Equal(t, c.slice.SliceType, sh.SliceType, c.name)
		}

		assert.Equal(t, marks.QpDeltaPos, sh.Offsets.QpDeltaStartBits, c.name)
		assert.Equal(t, marks.EntryPointPos, sh.Offsets.EntryPointStartBits, c.name)
		assert.Equal(t, marks.HeaderEndPos, sh.Offsets.HeaderEndBits, c.name)

		// header之后是byte_alignment()，然后是原样的slice data
		rbsp := h2645.RemoveEmulationPrevention(nal)
		pos := sh.Offsets.HeaderEndBits
		assert.Equal(t, byte(1), (rbsp[pos/8]>>(7-pos%8))&1, c.name)
		assert.Equal(t, true, bytes.Equal(c.slice.Payload, rbsp[marks.PayloadBytePos:]), c.name)
	}
}

func TestParseSliceHeaderError(t *testing.T) {
	sp := innertest.DefaultSpsParam(1920, 1080)
	pp := innertest.DefaultPpsParam()
	ctx := newSliceContext(t, sp, pp)

	s := innertest.SliceParam{
		NaluType:                   NaluTypeSliceIdr,
		FirstSliceSegmentInPicFlag: 1,
		SliceType:                  SliceTypeI,
		Payload:                    innertest.Payload(16, 0x01),
	}
	nal, _ := innertest.BuildSlice(sp, pp, s)
	_, err := ctx.ParseSliceHeader(nal)
	assert.Equal(t, nil, err)

	// pps不存在
	pp2 := pp
	pp2.PpsId = 7
	nal2, _ := innertest.BuildSlice(sp, pp2, s)
	_, err = ctx.ParseSliceHeader(nal2)
	assert.Equal(t, true, errors.Is(err, base.ErrHevcParameterSetNotFound))

	// nuh_layer_id为1
	nal3 := append([]byte{}, nal...)
	nal3[1] = 0x09
	_, err = ctx.ParseSliceHeader(nal3)
	assert.Equal(t, true, errors.Is(err, base.ErrHevcUnsupported))

	// 不是slice
	_, err = ctx.ParseSliceHeader(innertest.Pps1080p)
	assert.IsNotNil(t, err)

	// 数据不完整
	_, err = ctx.ParseSliceHeader(nal[:3])
	assert.IsNotNil(t, err)
	_, err = ctx.ParseSliceHeader(nal[:2])
	assert.IsNotNil(t, err)
}
