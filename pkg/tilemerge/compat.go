// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package tilemerge

import (
	"fmt"

	"github.com/q191201771/tilemerge/pkg/base"
	"github.com/q191201771/tilemerge/pkg/hevc"
)

// checkCompatible 检查ctx中的参数集与参考流的参数集在slice header语法上是否一致
//
// 合并后所有slice都按参考流改写出来的sps、pps解码，改写slice header时只修改地址和qp，
// 其他字段按位拷贝，所以影响slice header解析的字段必须相同。
//
func checkCompatible(ref *hevc.Context, ctx *hevc.Context, ppsList []uint32) error {
	for _, id := range ppsList {
		pps, sps, err := ctx.GetPpsAndSps(id)
		if err != nil {
			return base.NewErrTileMergeMissingParameterSet(err)
		}
		refPps, refSps, err := ref.GetPpsAndSps(id)
		if err != nil {
			return base.NewErrTileMergeMissingParameterSet(err)
		}
		if what := diffSps(refSps, sps); what != "" {
			return base.NewErrTileMergeNonCompliantBitstream(fmt.Errorf("sps mismatch with reference stream. pps=%d, field=%s", id, what))
		}
		if what := diffPps(refPps, pps); what != "" {
			return base.NewErrTileMergeNonCompliantBitstream(fmt.Errorf("pps mismatch with reference stream. pps=%d, field=%s", id, what))
		}
	}
	return nil
}

func diffSps(a, b *hevc.Sps) string {
	switch {
	case a.ChromaArrayType != b.ChromaArrayType:
		return "chroma_format_idc"
	case a.CtbSizeY != b.CtbSizeY:
		return "ctb_size"
	case a.Log2MaxPicOrderCntLsbMinus4 != b.Log2MaxPicOrderCntLsbMinus4:
		return "log2_max_pic_order_cnt_lsb_minus4"
	case a.SampleAdaptiveOffsetEnabledFlag != b.SampleAdaptiveOffsetEnabledFlag:
		return "sample_adaptive_offset_enabled_flag"
	case a.NumShortTermRefPicSets != b.NumShortTermRefPicSets:
		return "num_short_term_ref_pic_sets"
	case a.LongTermRefPicsPresentFlag != b.LongTermRefPicsPresentFlag:
		return "long_term_ref_pics_present_flag"
	case a.NumLongTermRefPicsSps != b.NumLongTermRefPicsSps:
		return "num_long_term_ref_pics_sps"
	case a.SpsTemporalMvpEnabledFlag != b.SpsTemporalMvpEnabledFlag:
		return "sps_temporal_mvp_enabled_flag"
	}
	return ""
}

func diffPps(a, b *hevc.Pps) string {
	switch {
	case a.SpsId != b.SpsId:
		return "pps_seq_parameter_set_id"
	case a.DependentSliceSegmentsEnabledFlag != b.DependentSliceSegmentsEnabledFlag:
		return "dependent_slice_segments_enabled_flag"
	case a.OutputFlagPresentFlag != b.OutputFlagPresentFlag:
		return "output_flag_present_flag"
	case a.NumExtraSliceHeaderBits != b.NumExtraSliceHeaderBits:
		return "num_extra_slice_header_bits"
	case a.CabacInitPresentFlag != b.CabacInitPresentFlag:
		return "cabac_init_present_flag"
	case a.NumRefIdxL0DefaultActiveMinus1 != b.NumRefIdxL0DefaultActiveMinus1:
		return "num_ref_idx_l0_default_active_minus1"
	case a.NumRefIdxL1DefaultActiveMinus1 != b.NumRefIdxL1DefaultActiveMinus1:
		return "num_ref_idx_l1_default_active_minus1"
	case a.SliceChromaQpOffsetsPresentFlag != b.SliceChromaQpOffsetsPresentFlag:
		return "pps_slice_chroma_qp_offsets_present_flag"
	case a.WeightedPredFlag != b.WeightedPredFlag:
		return "weighted_pred_flag"
	case a.WeightedBipredFlag != b.WeightedBipredFlag:
		return "weighted_bipred_flag"
	case a.DeblockingFilterOverrideEnabledFlag != b.DeblockingFilterOverrideEnabledFlag:
		return "deblocking_filter_override_enabled_flag"
	case a.PpsDeblockingFilterDisabledFlag != b.PpsDeblockingFilterDisabledFlag:
		return "pps_deblocking_filter_disabled_flag"
	case a.LoopFilterAcrossSlicesEnabledFlag != b.LoopFilterAcrossSlicesEnabledFlag:
		return "pps_loop_filter_across_slices_enabled_flag"
	case a.ListsModificationPresentFlag != b.ListsModificationPresentFlag:
		return "lists_modification_present_flag"
	case a.SliceSegmentHeaderExtensionPresentFlag != b.SliceSegmentHeaderExtensionPresentFlag:
		return "slice_segment_header_extension_present_flag"
	case a.ChromaQpOffsetListEnabledFlag != b.ChromaQpOffsetListEnabledFlag:
		return "chroma_qp_offset_list_enabled_flag"
	}
	return ""
}
