// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package hevc

import (
	"github.com/q191201771/tilemerge/pkg/base"
)

// Sps 解析到sps_temporal_mvp_enabled_flag为止，vui等后续字段不解析
type Sps struct {
	VpsId                 uint32
	MaxSubLayersMinus1    uint8
	TemporalIdNestingFlag uint8
	Ptl                   ProfileTierLevel

	SpsId                   uint32
	ChromaFormatIdc         uint32
	SeparateColourPlaneFlag uint8
	PicWidthInLumaSamples   uint32
	PicHeightInLumaSamples  uint32
	ConformanceWindowFlag   uint8
	ConfWinLeftOffset       uint32
	ConfWinRightOffset      uint32
	ConfWinTopOffset        uint32
	ConfWinBottomOffset     uint32
	BitDepthLumaMinus8      uint32
	BitDepthChromaMinus8    uint32

	Log2MaxPicOrderCntLsbMinus4       uint32
	Log2MinLumaCodingBlockSizeMinus3  uint32
	Log2DiffMaxMinLumaCodingBlockSize uint32
	ScalingListEnabledFlag            uint8
	AmpEnabledFlag                    uint8
	SampleAdaptiveOffsetEnabledFlag   uint8
	PcmEnabledFlag                    uint8
	NumShortTermRefPicSets            uint32
	StRefPicSets                      []ShortTermRefPicSet
	LongTermRefPicsPresentFlag        uint8
	NumLongTermRefPicsSps             uint32
	UsedByCurrPicLtSpsFlag            []uint8
	SpsTemporalMvpEnabledFlag         uint8

	// 推导值
	ChromaArrayType         uint32
	SubWidthC               uint32
	SubHeightC              uint32
	MinCbSizeY              uint32
	CtbLog2SizeY            uint32
	CtbSizeY                uint32
	PicWidthInCtbsY         uint32
	PicHeightInCtbsY        uint32
	PicSizeInCtbsY          uint32
	SliceSegmentAddressBits uint32

	// pic_width_in_luma_samples的起始位置，以及conformance window结束的位置，从nal header开始计数
	GeometryStartBits uint
	GeometryEndBits   uint
}

// Width 裁剪后的宽
func (sps *Sps) Width() uint32 {
	return sps.PicWidthInLumaSamples - sps.SubWidthC*(sps.ConfWinLeftOffset+sps.ConfWinRightOffset)
}

// Height 裁剪后的高
func (sps *Sps) Height() uint32 {
	return sps.PicHeightInLumaSamples - sps.SubHeightC*(sps.ConfWinTopOffset+sps.ConfWinBottomOffset)
}

func (sps *Sps) Log2MaxPicOrderCntLsb() uint32 {
	return sps.Log2MaxPicOrderCntLsbMinus4 + 4
}

// ParseSps 7.3.2.2 Sequence parameter set RBSP syntax
//
// @param nal: 包含2字节nal header，可以包含防竞争字节
//
func ParseSps(nal []byte) (*Sps, error) {
	r, _ := newRbspReader(nal)
	sr := newSyntaxReader(r)
	sr.skip(16)

	var sps Sps
	sps.VpsId = sr.u(4)
	sps.MaxSubLayersMinus1 = sr.u8(3)
	sps.TemporalIdNestingFlag = sr.flag()
	if !sr.check(sps.MaxSubLayersMinus1 < maxSubLayers, base.ErrHevc) {
		return nil, sr.err
	}
	sps.Ptl = parseProfileTierLevel(sr, true, sps.MaxSubLayersMinus1)

	sps.SpsId = sr.ue()
	if !sr.check(sps.SpsId < maxSpsCount, base.ErrHevc) {
		return nil, sr.err
	}
	sps.ChromaFormatIdc = sr.ue()
	if !sr.check(sps.ChromaFormatIdc <= 3, base.ErrHevc) {
		return nil, sr.err
	}
	if sps.ChromaFormatIdc == 3 {
		sps.SeparateColourPlaneFlag = sr.flag()
	}

	sps.GeometryStartBits = sr.pos()
	sps.PicWidthInLumaSamples = sr.ue()
	sps.PicHeightInLumaSamples = sr.ue()
	sps.ConformanceWindowFlag = sr.flag()
	if sps.ConformanceWindowFlag == 1 {
		sps.ConfWinLeftOffset = sr.ue()
		sps.ConfWinRightOffset = sr.ue()
		sps.ConfWinTopOffset = sr.ue()
		sps.ConfWinBottomOffset = sr.ue()
	}
	sps.GeometryEndBits = sr.pos()

	sps.BitDepthLumaMinus8 = sr.ue()
	sps.BitDepthChromaMinus8 = sr.ue()
	sps.Log2MaxPicOrderCntLsbMinus4 = sr.ue()
	if !sr.check(sps.Log2MaxPicOrderCntLsbMinus4 <= 12, base.ErrHevc) {
		return nil, sr.err
	}

	subLayerOrderingInfoPresentFlag := sr.flag()
	i := sps.MaxSubLayersMinus1
	if subLayerOrderingInfoPresentFlag == 1 {
		i = 0
	}
	for ; i <= sps.MaxSubLayersMinus1; i++ {
		sr.ue() // sps_max_dec_pic_buffering_minus1
		sr.ue() // sps_max_num_reorder_pics
		sr.ue() // sps_max_latency_increase_plus1
	}

	sps.Log2MinLumaCodingBlockSizeMinus3 = sr.ue()
	sps.Log2DiffMaxMinLumaCodingBlockSize = sr.ue()
	sr.ue() // log2_min_luma_transform_block_size_minus2
	sr.ue() // log2_diff_max_min_luma_transform_block_size
	sr.ue() // max_transform_hierarchy_depth_inter
	sr.ue() // max_transform_hierarchy_depth_intra
	if !sr.check(sps.Log2MinLumaCodingBlockSizeMinus3+3+sps.Log2DiffMaxMinLumaCodingBlockSize <= 6, base.ErrHevc) {
		return nil, sr.err
	}

	sps.ScalingListEnabledFlag = sr.flag()
	if sps.ScalingListEnabledFlag == 1 {
		if sr.flag() == 1 { // sps_scaling_list_data_present_flag
			parseScalingListData(sr)
		}
	}

	sps.AmpEnabledFlag = sr.flag()
	sps.SampleAdaptiveOffsetEnabledFlag = sr.flag()
	sps.PcmEnabledFlag = sr.flag()
	if sps.PcmEnabledFlag == 1 {
		sr.skip(4) // pcm_sample_bit_depth_luma_minus1
		sr.skip(4) // pcm_sample_bit_depth_chroma_minus1
		sr.ue()    // log2_min_pcm_luma_coding_block_size_minus3
		sr.ue()    // log2_diff_max_min_pcm_luma_coding_block_size
		sr.skip(1) // pcm_loop_filter_disabled_flag
	}

	sps.NumShortTermRefPicSets = sr.ue()
	if !sr.check(sps.NumShortTermRefPicSets <= maxShortTermRefPicSet, base.ErrHevc) {
		return nil, sr.err
	}
	sps.StRefPicSets = make([]ShortTermRefPicSet, 0, sps.NumShortTermRefPicSets)
	for idx := uint32(0); idx < sps.NumShortTermRefPicSets && sr.ok(); idx++ {
		rps := parseShortTermRefPicSet(sr, idx, sps.NumShortTermRefPicSets, sps.StRefPicSets)
		sps.StRefPicSets = append(sps.StRefPicSets, rps)
	}

	sps.LongTermRefPicsPresentFlag = sr.flag()
	if sps.LongTermRefPicsPresentFlag == 1 {
		sps.NumLongTermRefPicsSps = sr.ue()
		if !sr.check(sps.NumLongTermRefPicsSps <= maxLongTermRefPicSps, base.ErrHevc) {
			return nil, sr.err
		}
		sps.UsedByCurrPicLtSpsFlag = make([]uint8, sps.NumLongTermRefPicsSps)
		for idx := uint32(0); idx < sps.NumLongTermRefPicsSps; idx++ {
			sr.skip(uint(sps.Log2MaxPicOrderCntLsb())) // lt_ref_pic_poc_lsb_sps
			sps.UsedByCurrPicLtSpsFlag[idx] = sr.flag()
		}
	}
	sps.SpsTemporalMvpEnabledFlag = sr.flag()

	if !sr.ok() {
		return nil, sr.err
	}

	sps.derive()
	if !sr.check(sps.PicWidthInLumaSamples != 0 && sps.PicHeightInLumaSamples != 0, base.ErrHevc) {
		return nil, sr.err
	}
	return &sps, nil
}

func (sps *Sps) derive() {
	sps.ChromaArrayType = sps.ChromaFormatIdc
	if sps.SeparateColourPlaneFlag == 1 {
		sps.ChromaArrayType = 0
	}
	// Table 6-1
	sps.SubWidthC, sps.SubHeightC = 1, 1
	switch sps.ChromaArrayType {
	case 1:
		sps.SubWidthC, sps.SubHeightC = 2, 2
	case 2:
		sps.SubWidthC = 2
	}

	minCbLog2SizeY := sps.Log2MinLumaCodingBlockSizeMinus3 + 3
	sps.MinCbSizeY = 1 << minCbLog2SizeY
	sps.CtbLog2SizeY = minCbLog2SizeY + sps.Log2DiffMaxMinLumaCodingBlockSize
	sps.CtbSizeY = 1 << sps.CtbLog2SizeY
	sps.PicWidthInCtbsY = (sps.PicWidthInLumaSamples + sps.CtbSizeY - 1) / sps.CtbSizeY
	sps.PicHeightInCtbsY = (sps.PicHeightInLumaSamples + sps.CtbSizeY - 1) / sps.CtbSizeY
	sps.PicSizeInCtbsY = sps.PicWidthInCtbsY * sps.PicHeightInCtbsY
	sps.SliceSegmentAddressBits = CeilLog2(sps.PicSizeInCtbsY)
}

// 7.3.4 Scaling list data syntax，只跳过不保存
func parseScalingListData(sr *syntaxReader) {
	for sizeId := 0; sizeId < 4; sizeId++ {
		step := 1
		if sizeId == 3 {
			step = 3
		}
		for matrixId := 0; matrixId < 6; matrixId += step {
			if sr.flag() == 0 { // scaling_list_pred_mode_flag
				sr.ue() // scaling_list_pred_matrix_id_delta
				continue
			}
			coefNum := 1 << (4 + (sizeId << 1))
			if coefNum > 64 {
				coefNum = 64
			}
			if sizeId > 1 {
				sr.se() // scaling_list_dc_coef_minus8
			}
			for i := 0; i < coefNum && sr.ok(); i++ {
				sr.se() // scaling_list_delta_coef
			}
		}
	}
}
