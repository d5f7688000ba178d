// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package hevc

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/q191201771/naza/pkg/assert"
	"github.com/q191201771/tilemerge/pkg/base"
	"github.com/q191201771/tilemerge/pkg/innertest"
)

func TestRewriteSpsGeometry(t *testing.T) {
	// 宽高不变时输出与输入完全相同
	out, err := RewriteSpsGeometry(innertest.Sps1080p, 1920, 1080)
	assert.Equal(t, nil, err)
	assert.Equal(t, innertest.Sps1080p, out)

	golden := []struct {
		width  uint32
		height uint32
		out    string
	}{
		{3840, 1080, "420101016000000300b0000003000003007ba001e0200439636b92452fcdc0404040200040"},
		{3840, 2160, "420101016000000300b0000003000003007ba001e020021c58dae4914bf370101010080010"},
		{1000, 500, "420101016000000300b0000003000003007ba007d201f9f78dae4914bf37010101008001"},
	}
	orig, err := ParseSps(innertest.Sps1080p)
	assert.Equal(t, nil, err)
	for _, item := range golden {
		out, err := RewriteSpsGeometry(innertest.Sps1080p, item.width, item.height)
		assert.Equal(t, nil, err)
		assert.Equal(t, item.out, hex.EncodeToString(out))

		sps, err := ParseSps(out)
		assert.Equal(t, nil, err)
		assert.Equal(t, item.width, sps.Width())
		assert.Equal(t, item.height, sps.Height())
		assert.Equal(t, orig.Log2MaxPicOrderCntLsb(), sps.Log2MaxPicOrderCntLsb())
		assert.Equal(t, orig.SampleAdaptiveOffsetEnabledFlag, sps.SampleAdaptiveOffsetEnabledFlag)
		assert.Equal(t, orig.LongTermRefPicsPresentFlag, sps.LongTermRefPicsPresentFlag)
		assert.Equal(t, orig.SpsTemporalMvpEnabledFlag, sps.SpsTemporalMvpEnabledFlag)
		assert.Equal(t, orig.Ptl, sps.Ptl)
	}
}

func TestRewriteSpsGeometrySynthetic(t *testing.T) {
	// 原始码流带conformance window，以及rps等需要逐位拷贝的字段
	p := innertest.DefaultSpsParam(1000, 500)
	p.ConfWin = []uint32{0, 4, 0, 2}
	p.ScalingListData = true
	p.StRps = []innertest.RpsParam{
		{DeltaPocS0Minus1: []uint32{0}, UsedByCurrPicS0: []uint8{1}},
	}
	nal := innertest.BuildSps(p)

	out, err := RewriteSpsGeometry(nal, 2560, 1440)
	assert.Equal(t, nil, err)
	sps, err := ParseSps(out)
	assert.Equal(t, nil, err)
	assert.Equal(t, uint8(0), sps.ConformanceWindowFlag)
	assert.Equal(t, uint32(2560), sps.Width())
	assert.Equal(t, uint32(1440), sps.Height())
	assert.Equal(t, uint32(40), sps.PicWidthInCtbsY)
	assert.Equal(t, uint32(23), sps.PicHeightInCtbsY)
	assert.Equal(t, uint32(10), sps.SliceSegmentAddressBits)
	assert.Equal(t, uint32(1), sps.NumShortTermRefPicSets)
	assert.Equal(t, []int32{-1}, sps.StRefPicSets[0].DeltaPocS0)

	// 改回去后再改一次，结果不变
	back, err := RewriteSpsGeometry(out, 992, 496)
	assert.Equal(t, nil, err)
	again, err := RewriteSpsGeometry(back, 2560, 1440)
	assert.Equal(t, nil, err)
	assert.Equal(t, out, again)
}

func TestRewriteSpsGeometryError(t *testing.T) {
	_, err := RewriteSpsGeometry(innertest.Sps1080p, 0, 1080)
	assert.Equal(t, true, errors.Is(err, base.ErrHevc))

	// 4:2:0时裁剪的行列数需要是2的倍数
	_, err = RewriteSpsGeometry(innertest.Sps1080p, 999, 1080)
	assert.Equal(t, true, errors.Is(err, base.ErrHevcUnsupported))

	_, err = RewriteSpsGeometry(innertest.Sps1080p[:10], 1920, 1080)
	assert.IsNotNil(t, err)
}

func TestDecoderConfigurationRecord(t *testing.T) {
	goldenHvcc := "010160000000b000000000007bf000fcfdf8f800000f03" +
		"a00001001840010c01ffff016000000300b0000003000003007bac0901" +
		"a100010024420101016000000300b0000003000003007ba003c08010e58dae4914bf37010101008001" +
		"a20001000c4401c0f2c68d03b240000003"

	dcr, err := BuildDecoderConfigurationRecord([][]byte{innertest.Vps1080p}, [][]byte{innertest.Sps1080p}, [][]byte{innertest.Pps1080p})
	assert.Equal(t, nil, err)
	b := dcr.Pack()
	assert.Equal(t, goldenHvcc, hex.EncodeToString(b))

	dcr2, err := ParseDecoderConfigurationRecord(b)
	assert.Equal(t, nil, err)
	assert.Equal(t, uint8(1), dcr2.ConfigurationVersion)
	assert.Equal(t, uint8(1), dcr2.GeneralProfileIdc)
	assert.Equal(t, uint32(0x60000000), dcr2.GeneralProfileCompatibilityFlags)
	assert.Equal(t, uint64(0xB00000000000), dcr2.GeneralConstraintIndicatorFlags)
	assert.Equal(t, uint8(123), dcr2.GeneralLevelIdc)
	assert.Equal(t, uint8(1), dcr2.ChromaFormat)
	assert.Equal(t, uint8(1), dcr2.NumTemporalLayers)
	assert.Equal(t, uint8(1), dcr2.TemporalIdNested)
	assert.Equal(t, 4, dcr2.LengthSize())
	assert.Equal(t, 3, len(dcr2.Arrays))
	assert.Equal(t, [][]byte{innertest.Sps1080p}, dcr2.Nalus(NaluTypeSps))
	assert.Equal(t, 0, len(dcr2.Nalus(NaluTypeSei)))
	assert.Equal(t, [][]byte{innertest.Vps1080p, innertest.Sps1080p, innertest.Pps1080p}, dcr2.ParameterSets())
	assert.Equal(t, b, dcr2.Pack())

	// 不完整的数据
	for _, n := range []int{0, 22, 23 + 2, 23 + 4, 23 + 5 + 10} {
		_, err = ParseDecoderConfigurationRecord(b[:n])
		assert.Equal(t, true, errors.Is(err, base.ErrHevcDcr))
	}

	_, err = BuildDecoderConfigurationRecord(nil, [][]byte{innertest.Sps1080p}, [][]byte{innertest.Pps1080p})
	assert.Equal(t, true, errors.Is(err, base.ErrHevcDcr))
}
