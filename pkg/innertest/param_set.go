// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package innertest

import "encoding/hex"

const (
	naluTypeVps = 32
	naluTypeSps = 33
	naluTypePps = 34
)

// 一路1920x1080的真实码流的参数集
var (
	Vps1080p, _ = hex.DecodeString("40010c01ffff016000000300b0000003000003007bac0901")
	Sps1080p, _ = hex.DecodeString("420101016000000300b0000003000003007ba003c08010e58dae4914bf37010101008001")
	Pps1080p, _ = hex.DecodeString("4401c0f2c68d03b240000003")
)

// RpsParam st_ref_pic_set()
type RpsParam struct {
	InterRefPicSetPredictionFlag bool
	DeltaIdxMinus1               uint32 // 只在slice header中出现
	DeltaRpsSign                 uint8
	AbsDeltaRpsMinus1            uint32
	UsedByCurrPicFlag            []uint8
	UseDeltaFlag                 []uint8 // 与UsedByCurrPicFlag等长，只在UsedByCurrPicFlag为0时写入

	DeltaPocS0Minus1 []uint32
	UsedByCurrPicS0  []uint8
	DeltaPocS1Minus1 []uint32
	UsedByCurrPicS1  []uint8
}

type SpsParam struct {
	VpsId                   uint32
	SpsId                   uint32
	ChromaFormatIdc         uint32
	SeparateColourPlaneFlag uint8
	Width                   uint32
	Height                  uint32
	ConfWin                 []uint32 // left right top bottom，为nil时conformance_window_flag为0
	Log2MaxPocLsbMinus4     uint32
	Log2MinCbSizeMinus3     uint32
	Log2DiffMaxMinCbSize    uint32
	ScalingListData         bool
	SampleAdaptiveOffset    bool
	Pcm                     bool
	StRps                   []RpsParam
	LongTermRefPicsPresent  bool
	UsedByCurrPicLtSpsFlag  []uint8
	TemporalMvp             bool
	StrongIntraSmoothing    bool
}

// DefaultSpsParam 4:2:0，CTB 64x64，MinCb 8x8
func DefaultSpsParam(width, height uint32) SpsParam {
	return SpsParam{
		ChromaFormatIdc:      1,
		Width:                width,
		Height:               height,
		Log2MaxPocLsbMinus4:  4,
		Log2DiffMaxMinCbSize: 3,
		SampleAdaptiveOffset: true,
		TemporalMvp:          true,
		StrongIntraSmoothing: true,
	}
}

func (p *SpsParam) CtbSize() uint32 {
	return 1 << (p.Log2MinCbSizeMinus3 + 3 + p.Log2DiffMaxMinCbSize)
}

// AddressBits slice_segment_address的位数
func (p *SpsParam) AddressBits() uint {
	ctb := p.CtbSize()
	n := ((p.Width + ctb - 1) / ctb) * ((p.Height + ctb - 1) / ctb)
	return CeilLog2(n)
}

func (p *SpsParam) ChromaArrayType() uint32 {
	if p.SeparateColourPlaneFlag == 1 {
		return 0
	}
	return p.ChromaFormatIdc
}

type TilesParam struct {
	NumTileColumnsMinus1             uint32
	NumTileRowsMinus1                uint32
	UniformSpacing                   bool
	ColumnWidthMinus1                []uint32
	RowHeightMinus1                  []uint32
	LoopFilterAcrossTilesEnabledFlag uint8
}

type PpsParam struct {
	PpsId                              uint32
	SpsId                              uint32
	DependentSliceSegmentsEnabled      bool
	OutputFlagPresent                  bool
	NumExtraSliceHeaderBits            uint8
	SignDataHiding                     bool
	CabacInitPresent                   bool
	NumRefIdxL0DefaultActiveMinus1     uint32
	NumRefIdxL1DefaultActiveMinus1     uint32
	InitQpMinus26                      int32
	ConstrainedIntraPred               bool
	TransformSkip                      bool
	CuQpDeltaEnabled                   bool
	DiffCuQpDeltaDepth                 uint32
	CbQpOffset                         int32
	CrQpOffset                         int32
	SliceChromaQpOffsetsPresent        bool
	WeightedPred                       bool
	WeightedBipred                     bool
	TransquantBypass                   bool
	Tiles                              *TilesParam
	EntropyCodingSync                  bool
	LoopFilterAcrossSlices             bool
	DeblockingFilterControlPresent     bool
	DeblockingFilterOverrideEnabled    bool
	PpsDeblockingFilterDisabled        bool
	BetaOffsetDiv2                     int32
	TcOffsetDiv2                       int32
	ListsModificationPresent           bool
	Log2ParallelMergeLevelMinus2       uint32
	SliceSegmentHeaderExtensionPresent bool
	RangeExtension                     bool
	ChromaQpOffsetList                 [][2]int32 // 为nil时chroma_qp_offset_list_enabled_flag为0
}

func DefaultPpsParam() PpsParam {
	return PpsParam{
		CabacInitPresent:                true,
		CuQpDeltaEnabled:                true,
		DiffCuQpDeltaDepth:              2,
		CbQpOffset:                      -6,
		CrQpOffset:                      -6,
		LoopFilterAcrossSlices:          true,
		DeblockingFilterControlPresent:  true,
		DeblockingFilterOverrideEnabled: true,
	}
}

func BuildVps() []byte {
	nw := NewNalWriter(naluTypeVps)
	nw.U(4, 0) // vps_video_parameter_set_id
	nw.U(2, 3) // vps_base_layer_internal_flag, vps_base_layer_available_flag
	nw.U(6, 0) // vps_max_layers_minus1
	nw.U(3, 0) // vps_max_sub_layers_minus1
	nw.U(1, 1) // vps_temporal_id_nesting_flag
	nw.U(16, 0xFFFF)
	writeProfileTierLevel(nw)
	nw.U(1, 1) // vps_sub_layer_ordering_info_present_flag
	nw.Ue(4)
	nw.Ue(0)
	nw.Ue(0)
	nw.U(6, 0) // vps_max_layer_id
	nw.Ue(0)   // vps_num_layer_sets_minus1
	nw.U(1, 0) // vps_timing_info_present_flag
	nw.U(1, 0) // vps_extension_flag
	return nw.Rbsp()
}

// general_profile_idc为1，general_level_idc为123
func writeProfileTierLevel(nw *NalWriter) {
	nw.U(2, 0)
	nw.U(1, 0)
	nw.U(5, 1)
	nw.U(32, 0x60000000)
	nw.U(16, 0xB000)
	nw.U(32, 0)
	nw.U(8, 123)
}

func BuildSps(p SpsParam) []byte {
	nw := NewNalWriter(naluTypeSps)
	nw.U(4, p.VpsId)
	nw.U(3, 0) // sps_max_sub_layers_minus1
	nw.U(1, 1) // sps_temporal_id_nesting_flag
	writeProfileTierLevel(nw)
	nw.Ue(p.SpsId)
	nw.Ue(p.ChromaFormatIdc)
	if p.ChromaFormatIdc == 3 {
		nw.U8(1, p.SeparateColourPlaneFlag)
	}
	nw.Ue(p.Width)
	nw.Ue(p.Height)
	if p.ConfWin == nil {
		nw.U(1, 0)
	} else {
		nw.U(1, 1)
		for _, v := range p.ConfWin {
			nw.Ue(v)
		}
	}
	nw.Ue(0) // bit_depth_luma_minus8
	nw.Ue(0) // bit_depth_chroma_minus8
	nw.Ue(p.Log2MaxPocLsbMinus4)
	nw.U(1, 1) // sps_sub_layer_ordering_info_present_flag
	nw.Ue(4)
	nw.Ue(0)
	nw.Ue(0)
	nw.Ue(p.Log2MinCbSizeMinus3)
	nw.Ue(p.Log2DiffMaxMinCbSize)
	nw.Ue(0) // log2_min_luma_transform_block_size_minus2
	nw.Ue(3) // log2_diff_max_min_luma_transform_block_size
	nw.Ue(1) // max_transform_hierarchy_depth_inter
	nw.Ue(1) // max_transform_hierarchy_depth_intra
	if p.ScalingListData {
		nw.U(1, 1) // scaling_list_enabled_flag
		nw.U(1, 1) // sps_scaling_list_data_present_flag
		writeScalingListData(nw)
	} else {
		nw.U(1, 0)
	}
	nw.U(1, 0) // amp_enabled_flag
	writeFlag(nw, p.SampleAdaptiveOffset)
	writeFlag(nw, p.Pcm)
	if p.Pcm {
		nw.U(4, 7)
		nw.U(4, 7)
		nw.Ue(0)
		nw.Ue(1)
		nw.U(1, 1)
	}
	nw.Ue(uint32(len(p.StRps)))
	for i := range p.StRps {
		WriteRps(nw, uint32(i), uint32(len(p.StRps)), &p.StRps[i])
	}
	writeFlag(nw, p.LongTermRefPicsPresent)
	if p.LongTermRefPicsPresent {
		nw.Ue(uint32(len(p.UsedByCurrPicLtSpsFlag)))
		for i, used := range p.UsedByCurrPicLtSpsFlag {
			nw.U(uint(p.Log2MaxPocLsbMinus4+4), uint32(i*2)) // lt_ref_pic_poc_lsb_sps
			nw.U8(1, used)
		}
	}
	writeFlag(nw, p.TemporalMvp)
	writeFlag(nw, p.StrongIntraSmoothing)
	nw.U(1, 0) // vui_parameters_present_flag
	nw.U(1, 0) // sps_extension_present_flag
	return nw.Rbsp()
}

// writeScalingListData 前两个矩阵显式写入系数，其余的引用默认值
func writeScalingListData(nw *NalWriter) {
	for sizeId := 0; sizeId < 4; sizeId++ {
		step := 1
		if sizeId == 3 {
			step = 3
		}
		for matrixId := 0; matrixId < 6; matrixId += step {
			if matrixId != 0 {
				nw.U(1, 0) // scaling_list_pred_mode_flag
				nw.Ue(0)   // scaling_list_pred_matrix_id_delta
				continue
			}
			nw.U(1, 1)
			coefNum := 1 << (4 + (sizeId << 1))
			if coefNum > 64 {
				coefNum = 64
			}
			if sizeId > 1 {
				nw.Se(8) // scaling_list_dc_coef_minus8
			}
			for i := 0; i < coefNum; i++ {
				nw.Se(int32(i%5) - 2) // scaling_list_delta_coef
			}
		}
	}
}

// WriteRps st_ref_pic_set(stRpsIdx)
func WriteRps(nw *NalWriter, stRpsIdx uint32, numShortTermRefPicSets uint32, p *RpsParam) {
	if stRpsIdx != 0 {
		writeFlag(nw, p.InterRefPicSetPredictionFlag)
	}
	if p.InterRefPicSetPredictionFlag {
		if stRpsIdx == numShortTermRefPicSets {
			nw.Ue(p.DeltaIdxMinus1)
		}
		nw.U8(1, p.DeltaRpsSign)
		nw.Ue(p.AbsDeltaRpsMinus1)
		for j, used := range p.UsedByCurrPicFlag {
			nw.U8(1, used)
			if used == 0 {
				nw.U8(1, p.UseDeltaFlag[j])
			}
		}
		return
	}
	nw.Ue(uint32(len(p.DeltaPocS0Minus1)))
	nw.Ue(uint32(len(p.DeltaPocS1Minus1)))
	for i, v := range p.DeltaPocS0Minus1 {
		nw.Ue(v)
		nw.U8(1, p.UsedByCurrPicS0[i])
	}
	for i, v := range p.DeltaPocS1Minus1 {
		nw.Ue(v)
		nw.U8(1, p.UsedByCurrPicS1[i])
	}
}

// BuildPpsWithMarks 同 BuildPps，额外返回tiles_enabled_flag的位置以及tile语法结束的位置
func BuildPpsWithMarks(p PpsParam) (nal []byte, tilesFlagPos uint, tilesEndPos uint) {
	nw := NewNalWriter(naluTypePps)
	nw.Ue(p.PpsId)
	nw.Ue(p.SpsId)
	writeFlag(nw, p.DependentSliceSegmentsEnabled)
	writeFlag(nw, p.OutputFlagPresent)
	nw.U8(3, p.NumExtraSliceHeaderBits)
	writeFlag(nw, p.SignDataHiding)
	writeFlag(nw, p.CabacInitPresent)
	nw.Ue(p.NumRefIdxL0DefaultActiveMinus1)
	nw.Ue(p.NumRefIdxL1DefaultActiveMinus1)
	nw.Se(p.InitQpMinus26)
	writeFlag(nw, p.ConstrainedIntraPred)
	writeFlag(nw, p.TransformSkip)
	writeFlag(nw, p.CuQpDeltaEnabled)
	if p.CuQpDeltaEnabled {
		nw.Ue(p.DiffCuQpDeltaDepth)
	}
	nw.Se(p.CbQpOffset)
	nw.Se(p.CrQpOffset)
	writeFlag(nw, p.SliceChromaQpOffsetsPresent)
	writeFlag(nw, p.WeightedPred)
	writeFlag(nw, p.WeightedBipred)
	writeFlag(nw, p.TransquantBypass)

	tilesFlagPos = nw.Pos()
	writeFlag(nw, p.Tiles != nil)
	writeFlag(nw, p.EntropyCodingSync)
	if t := p.Tiles; t != nil {
		nw.Ue(t.NumTileColumnsMinus1)
		nw.Ue(t.NumTileRowsMinus1)
		writeFlag(nw, t.UniformSpacing)
		if !t.UniformSpacing {
			for _, v := range t.ColumnWidthMinus1 {
				nw.Ue(v)
			}
			for _, v := range t.RowHeightMinus1 {
				nw.Ue(v)
			}
		}
		nw.U8(1, t.LoopFilterAcrossTilesEnabledFlag)
	}
	tilesEndPos = nw.Pos()

	writeFlag(nw, p.LoopFilterAcrossSlices)
	writeFlag(nw, p.DeblockingFilterControlPresent)
	if p.DeblockingFilterControlPresent {
		writeFlag(nw, p.DeblockingFilterOverrideEnabled)
		writeFlag(nw, p.PpsDeblockingFilterDisabled)
		if !p.PpsDeblockingFilterDisabled {
			nw.Se(p.BetaOffsetDiv2)
			nw.Se(p.TcOffsetDiv2)
		}
	}
	nw.U(1, 0) // pps_scaling_list_data_present_flag
	writeFlag(nw, p.ListsModificationPresent)
	nw.Ue(p.Log2ParallelMergeLevelMinus2)
	writeFlag(nw, p.SliceSegmentHeaderExtensionPresent)
	writeFlag(nw, p.RangeExtension)
	if p.RangeExtension {
		nw.U(1, 1) // pps_range_extension_flag
		nw.U(3, 0) // multilayer, 3d, scc
		nw.U(4, 0) // pps_extension_4bits
		if p.TransformSkip {
			nw.Ue(1) // log2_max_transform_skip_block_size_minus2
		}
		nw.U(1, 0) // cross_component_prediction_enabled_flag
		writeFlag(nw, p.ChromaQpOffsetList != nil)
		if p.ChromaQpOffsetList != nil {
			nw.Ue(0) // diff_cu_chroma_qp_offset_depth
			nw.Ue(uint32(len(p.ChromaQpOffsetList) - 1))
			for _, v := range p.ChromaQpOffsetList {
				nw.Se(v[0])
				nw.Se(v[1])
			}
		}
		nw.Ue(0) // log2_sao_offset_scale_luma
		nw.Ue(0) // log2_sao_offset_scale_chroma
	}
	return nw.Rbsp(), tilesFlagPos, tilesEndPos
}

func BuildPps(p PpsParam) []byte {
	nal, _, _ := BuildPpsWithMarks(p)
	return nal
}

func writeFlag(nw *NalWriter, b bool) {
	if b {
		nw.U(1, 1)
	} else {
		nw.U(1, 0)
	}
}
