// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package hevc

import (
	"github.com/q191201771/naza/pkg/nazaerrors"
	"github.com/q191201771/tilemerge/pkg/base"
)

// HeaderOffsets slice header中几个关键语法元素的位置
//
// 单位为bit，从去除防竞争字节后nal header的第一位开始计数
type HeaderOffsets struct {
	// HeaderEndBits slice_segment_header_extension之后，byte_alignment()之前
	HeaderEndBits uint

	// EntryPointStartBits num_entry_point_offsets的位置；没有entry point时为它应该出现的位置
	EntryPointStartBits uint

	// QpDeltaStartBits slice_qp_delta的位置，dependent slice segment没有该字段，为-1
	QpDeltaStartBits int
}

type SliceHeader struct {
	NaluType                          uint8
	FirstSliceSegmentInPicFlag        uint8
	NoOutputOfPriorPicsFlag           uint8
	PpsId                             uint32
	DependentSliceSegmentFlag         uint8
	SliceSegmentAddress               uint32
	SliceType                         uint32
	SliceQpDelta                      int32
	NumEntryPointOffsets              uint32
	SliceSegmentHeaderExtensionLength uint32

	Offsets HeaderOffsets
}

// ParseSliceHeader 7.3.6.1 General slice segment header syntax
//
// 需要slice引用的pps以及sps已经通过 ParseParameterSet 解析
//
// @param nal: 包含2字节nal header，可以包含防竞争字节
//
func (ctx *Context) ParseSliceHeader(nal []byte) (*SliceHeader, error) {
	if len(nal) < 3 {
		return nil, nazaerrors.Wrap(base.ErrShortBuffer)
	}
	var sh SliceHeader
	sh.NaluType = CalcNaluType(nal)
	if !IsSliceNalu(sh.NaluType) {
		return nil, nazaerrors.Wrap(base.ErrHevc)
	}
	if ParseLayerId(nal) != 0 {
		return nil, base.NewErrHevcUnsupported("nuh_layer_id > 0")
	}

	r, _ := newRbspReader(nal)
	sr := newSyntaxReader(r)
	sr.skip(16)

	sh.FirstSliceSegmentInPicFlag = sr.flag()
	if IsIrapNalu(sh.NaluType) {
		sh.NoOutputOfPriorPicsFlag = sr.flag()
	}
	sh.PpsId = sr.ue()
	if !sr.ok() {
		return nil, sr.err
	}
	pps, sps, err := ctx.GetPpsAndSps(sh.PpsId)
	if err != nil {
		return nil, err
	}

	if sh.FirstSliceSegmentInPicFlag == 0 {
		if pps.DependentSliceSegmentsEnabledFlag == 1 {
			sh.DependentSliceSegmentFlag = sr.flag()
		}
		sh.SliceSegmentAddress = sr.u(uint(sps.SliceSegmentAddressBits))
	}

	sh.Offsets.QpDeltaStartBits = -1
	if sh.DependentSliceSegmentFlag == 0 {
		parseIndependentSliceHeader(sr, &sh, pps, sps)
	}
	if !sr.ok() {
		return nil, sr.err
	}

	sh.Offsets.EntryPointStartBits = sr.pos()
	if pps.TilesEnabledFlag == 1 || pps.EntropyCodingSyncEnabledFlag == 1 {
		sh.NumEntryPointOffsets = sr.ue()
		if !sr.check(sh.NumEntryPointOffsets < maxEntryPointOffsets, base.ErrHevc) {
			return nil, sr.err
		}
		if sh.NumEntryPointOffsets > 0 {
			offsetLenMinus1 := sr.ue()
			if !sr.check(offsetLenMinus1 < 32, base.ErrHevc) {
				return nil, sr.err
			}
			for i := uint32(0); i < sh.NumEntryPointOffsets && sr.ok(); i++ {
				sr.skip(uint(offsetLenMinus1 + 1)) // entry_point_offset_minus1
			}
		}
	}

	if pps.SliceSegmentHeaderExtensionPresentFlag == 1 {
		sh.SliceSegmentHeaderExtensionLength = sr.ue()
		if !sr.check(sh.SliceSegmentHeaderExtensionLength <= 256, base.ErrHevc) {
			return nil, sr.err
		}
		sr.skip(uint(sh.SliceSegmentHeaderExtensionLength) * 8)
	}
	sh.Offsets.HeaderEndBits = sr.pos()

	if !sr.ok() {
		return nil, sr.err
	}
	return &sh, nil
}

// parseIndependentSliceHeader 从slice_reserved_flag到slice_loop_filter_across_slices_enabled_flag
func parseIndependentSliceHeader(sr *syntaxReader, sh *SliceHeader, pps *Pps, sps *Sps) {
	sr.skip(uint(pps.NumExtraSliceHeaderBits)) // slice_reserved_flag
	sh.SliceType = sr.ue()
	if !sr.check(sh.SliceType <= SliceTypeI, base.ErrHevc) {
		return
	}
	if pps.OutputFlagPresentFlag == 1 {
		sr.skip(1) // pic_output_flag
	}
	if sps.SeparateColourPlaneFlag == 1 {
		sr.skip(2) // colour_plane_id
	}

	var sliceTemporalMvpEnabledFlag uint8
	var numPicTotalCurr uint32
	if !IsIdrNalu(sh.NaluType) {
		sr.skip(uint(sps.Log2MaxPicOrderCntLsb())) // slice_pic_order_cnt_lsb

		var rps *ShortTermRefPicSet
		shortTermRefPicSetSpsFlag := sr.flag()
		if shortTermRefPicSetSpsFlag == 0 {
			st := parseShortTermRefPicSet(sr, sps.NumShortTermRefPicSets, sps.NumShortTermRefPicSets, sps.StRefPicSets)
			rps = &st
		} else {
			var idx uint32
			if sps.NumShortTermRefPicSets > 1 {
				idx = sr.u(uint(CeilLog2(sps.NumShortTermRefPicSets))) // short_term_ref_pic_set_idx
			}
			if !sr.check(idx < uint32(len(sps.StRefPicSets)), base.ErrHevc) {
				return
			}
			rps = &sps.StRefPicSets[idx]
		}
		if !sr.ok() {
			return
		}
		numPicTotalCurr = rps.NumUsedByCurrPic()

		if sps.LongTermRefPicsPresentFlag == 1 {
			numPicTotalCurr += parseLongTermRefPics(sr, sps)
		}
		if sps.SpsTemporalMvpEnabledFlag == 1 {
			sliceTemporalMvpEnabledFlag = sr.flag()
		}
	}

	var sliceSaoLumaFlag, sliceSaoChromaFlag uint8
	if sps.SampleAdaptiveOffsetEnabledFlag == 1 {
		sliceSaoLumaFlag = sr.flag()
		if sps.ChromaArrayType != 0 {
			sliceSaoChromaFlag = sr.flag()
		}
	}

	if sh.SliceType == SliceTypeP || sh.SliceType == SliceTypeB {
		numRefIdxL0ActiveMinus1 := pps.NumRefIdxL0DefaultActiveMinus1
		numRefIdxL1ActiveMinus1 := pps.NumRefIdxL1DefaultActiveMinus1
		if sr.flag() == 1 { // num_ref_idx_active_override_flag
			numRefIdxL0ActiveMinus1 = sr.ue()
			if sh.SliceType == SliceTypeB {
				numRefIdxL1ActiveMinus1 = sr.ue()
			}
		}
		if !sr.check(numRefIdxL0ActiveMinus1 <= maxRefIdx && numRefIdxL1ActiveMinus1 <= maxRefIdx, base.ErrHevc) {
			return
		}

		if pps.ListsModificationPresentFlag == 1 && numPicTotalCurr > 1 {
			listEntryBits := uint(CeilLog2(numPicTotalCurr))
			if sr.flag() == 1 { // ref_pic_list_modification_flag_l0
				for i := uint32(0); i <= numRefIdxL0ActiveMinus1; i++ {
					sr.skip(listEntryBits) // list_entry_l0
				}
			}
			if sh.SliceType == SliceTypeB {
				if sr.flag() == 1 { // ref_pic_list_modification_flag_l1
					for i := uint32(0); i <= numRefIdxL1ActiveMinus1; i++ {
						sr.skip(listEntryBits) // list_entry_l1
					}
				}
			}
		}

		if sh.SliceType == SliceTypeB {
			sr.skip(1) // mvd_l1_zero_flag
		}
		if pps.CabacInitPresentFlag == 1 {
			sr.skip(1) // cabac_init_flag
		}
		if sliceTemporalMvpEnabledFlag == 1 {
			collocatedFromL0Flag := uint8(1)
			if sh.SliceType == SliceTypeB {
				collocatedFromL0Flag = sr.flag()
			}
			if (collocatedFromL0Flag == 1 && numRefIdxL0ActiveMinus1 > 0) ||
				(collocatedFromL0Flag == 0 && numRefIdxL1ActiveMinus1 > 0) {
				sr.ue() // collocated_ref_idx
			}
		}
		if (pps.WeightedPredFlag == 1 && sh.SliceType == SliceTypeP) ||
			(pps.WeightedBipredFlag == 1 && sh.SliceType == SliceTypeB) {
			parsePredWeightTable(sr, sh.SliceType, sps, numRefIdxL0ActiveMinus1, numRefIdxL1ActiveMinus1)
		}
		sr.ue() // five_minus_max_num_merge_cand
	}

	sh.Offsets.QpDeltaStartBits = int(sr.pos())
	sh.SliceQpDelta = sr.se()
	if pps.SliceChromaQpOffsetsPresentFlag == 1 {
		sr.se() // slice_cb_qp_offset
		sr.se() // slice_cr_qp_offset
	}
	if pps.ChromaQpOffsetListEnabledFlag == 1 {
		sr.skip(1) // cu_chroma_qp_offset_enabled_flag
	}

	var deblockingFilterOverrideFlag uint8
	if pps.DeblockingFilterOverrideEnabledFlag == 1 {
		deblockingFilterOverrideFlag = sr.flag()
	}
	sliceDeblockingFilterDisabledFlag := pps.PpsDeblockingFilterDisabledFlag
	if deblockingFilterOverrideFlag == 1 {
		sliceDeblockingFilterDisabledFlag = sr.flag()
		if sliceDeblockingFilterDisabledFlag == 0 {
			sr.se() // slice_beta_offset_div2
			sr.se() // slice_tc_offset_div2
		}
	}
	if pps.LoopFilterAcrossSlicesEnabledFlag == 1 &&
		(sliceSaoLumaFlag == 1 || sliceSaoChromaFlag == 1 || sliceDeblockingFilterDisabledFlag == 0) {
		sr.skip(1) // slice_loop_filter_across_slices_enabled_flag
	}
}

// parseLongTermRefPics 返回长期参考帧中used_by_curr_pic的个数
func parseLongTermRefPics(sr *syntaxReader, sps *Sps) uint32 {
	var numLongTermSps uint32
	if sps.NumLongTermRefPicsSps > 0 {
		numLongTermSps = sr.ue()
	}
	numLongTermPics := sr.ue()
	if !sr.check(numLongTermSps <= sps.NumLongTermRefPicsSps && numLongTermSps+numLongTermPics <= 32, base.ErrHevc) {
		return 0
	}

	var used uint32
	for i := uint32(0); i < numLongTermSps+numLongTermPics; i++ {
		if i < numLongTermSps {
			var ltIdxSps uint32
			if sps.NumLongTermRefPicsSps > 1 {
				ltIdxSps = sr.u(uint(CeilLog2(sps.NumLongTermRefPicsSps)))
			}
			if !sr.check(ltIdxSps < sps.NumLongTermRefPicsSps, base.ErrHevc) {
				return 0
			}
			used += uint32(sps.UsedByCurrPicLtSpsFlag[ltIdxSps])
		} else {
			sr.skip(uint(sps.Log2MaxPicOrderCntLsb())) // poc_lsb_lt
			used += uint32(sr.flag())                  // used_by_curr_pic_lt_flag
		}
		if sr.flag() == 1 { // delta_poc_msb_present_flag
			sr.ue() // delta_poc_msb_cycle_lt
		}
	}
	return used
}

// parsePredWeightTable 7.3.6.3 Weighted prediction parameters syntax
func parsePredWeightTable(sr *syntaxReader, sliceType uint32, sps *Sps, numRefIdxL0ActiveMinus1, numRefIdxL1ActiveMinus1 uint32) {
	sr.ue() // luma_log2_weight_denom
	if sps.ChromaArrayType != 0 {
		sr.se() // delta_chroma_log2_weight_denom
	}

	parseList := func(numRefIdxActiveMinus1 uint32) {
		n := numRefIdxActiveMinus1 + 1
		lumaWeightFlag := make([]uint8, n)
		chromaWeightFlag := make([]uint8, n)
		for i := range lumaWeightFlag {
			lumaWeightFlag[i] = sr.flag()
		}
		if sps.ChromaArrayType != 0 {
			for i := range chromaWeightFlag {
				chromaWeightFlag[i] = sr.flag()
			}
		}
		for i := uint32(0); i < n; i++ {
			if lumaWeightFlag[i] == 1 {
				sr.se() // delta_luma_weight
				sr.se() // luma_offset
			}
			if chromaWeightFlag[i] == 1 {
				for j := 0; j < 2; j++ {
					sr.se() // delta_chroma_weight
					sr.se() // delta_chroma_offset
				}
			}
		}
	}

	parseList(numRefIdxL0ActiveMinus1)
	if sliceType == SliceTypeB {
		parseList(numRefIdxL1ActiveMinus1)
	}
}
