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

type Pps struct {
	PpsId                             uint32
	SpsId                             uint32
	DependentSliceSegmentsEnabledFlag uint8
	OutputFlagPresentFlag             uint8
	NumExtraSliceHeaderBits           uint8
	SignDataHidingEnabledFlag         uint8
	CabacInitPresentFlag              uint8
	NumRefIdxL0DefaultActiveMinus1    uint32
	NumRefIdxL1DefaultActiveMinus1    uint32
	InitQpMinus26                     int32
	ConstrainedIntraPredFlag          uint8
	TransformSkipEnabledFlag          uint8
	CuQpDeltaEnabledFlag              uint8
	DiffCuQpDeltaDepth                uint32
	CbQpOffset                        int32
	CrQpOffset                        int32
	SliceChromaQpOffsetsPresentFlag   uint8
	WeightedPredFlag                  uint8
	WeightedBipredFlag                uint8
	TransquantBypassEnabledFlag       uint8
	TilesEnabledFlag                  uint8
	EntropyCodingSyncEnabledFlag      uint8

	NumTileColumnsMinus1             uint32
	NumTileRowsMinus1                uint32
	UniformSpacingFlag               uint8
	ColumnWidthMinus1                []uint32
	RowHeightMinus1                  []uint32
	LoopFilterAcrossTilesEnabledFlag uint8

	LoopFilterAcrossSlicesEnabledFlag      uint8
	DeblockingFilterControlPresentFlag     uint8
	DeblockingFilterOverrideEnabledFlag    uint8
	PpsDeblockingFilterDisabledFlag        uint8
	BetaOffsetDiv2                         int32
	TcOffsetDiv2                           int32
	ScalingListDataPresentFlag             uint8
	ListsModificationPresentFlag           uint8
	Log2ParallelMergeLevelMinus2           uint32
	SliceSegmentHeaderExtensionPresentFlag uint8
	PpsExtensionPresentFlag                uint8

	PpsRangeExtensionFlag         uint8
	PpsMultilayerExtensionFlag    uint8
	Pps3dExtensionFlag            uint8
	PpsSccExtensionFlag           uint8
	ChromaQpOffsetListEnabledFlag uint8

	// tiles_enabled_flag所在的位置，以及tile相关语法结束的位置，从nal header开始计数
	TilesEnabledFlagBits uint
	TilesSectionEndBits  uint
}

// ParsePps 7.3.2.3 Picture parameter set RBSP syntax
//
// @param nal: 包含2字节nal header，可以包含防竞争字节
//
func ParsePps(nal []byte) (*Pps, error) {
	r, _ := newRbspReader(nal)
	sr := newSyntaxReader(r)
	sr.skip(16)

	var pps Pps
	pps.PpsId = sr.ue()
	pps.SpsId = sr.ue()
	if !sr.check(pps.PpsId < maxPpsCount && pps.SpsId < maxSpsCount, base.ErrHevc) {
		return nil, sr.err
	}
	pps.DependentSliceSegmentsEnabledFlag = sr.flag()
	pps.OutputFlagPresentFlag = sr.flag()
	pps.NumExtraSliceHeaderBits = sr.u8(3)
	pps.SignDataHidingEnabledFlag = sr.flag()
	pps.CabacInitPresentFlag = sr.flag()
	pps.NumRefIdxL0DefaultActiveMinus1 = sr.ue()
	pps.NumRefIdxL1DefaultActiveMinus1 = sr.ue()
	pps.InitQpMinus26 = sr.se()
	pps.ConstrainedIntraPredFlag = sr.flag()
	pps.TransformSkipEnabledFlag = sr.flag()
	pps.CuQpDeltaEnabledFlag = sr.flag()
	if pps.CuQpDeltaEnabledFlag == 1 {
		pps.DiffCuQpDeltaDepth = sr.ue()
	}
	pps.CbQpOffset = sr.se()
	pps.CrQpOffset = sr.se()
	pps.SliceChromaQpOffsetsPresentFlag = sr.flag()
	pps.WeightedPredFlag = sr.flag()
	pps.WeightedBipredFlag = sr.flag()
	pps.TransquantBypassEnabledFlag = sr.flag()

	pps.TilesEnabledFlagBits = sr.pos()
	pps.TilesEnabledFlag = sr.flag()
	pps.EntropyCodingSyncEnabledFlag = sr.flag()
	if pps.TilesEnabledFlag == 1 {
		pps.NumTileColumnsMinus1 = sr.ue()
		pps.NumTileRowsMinus1 = sr.ue()
		if !sr.check(pps.NumTileColumnsMinus1 < maxTileColumnsOrRows && pps.NumTileRowsMinus1 < maxTileColumnsOrRows, base.ErrHevc) {
			return nil, sr.err
		}
		pps.UniformSpacingFlag = sr.flag()
		if pps.UniformSpacingFlag == 0 {
			pps.ColumnWidthMinus1 = make([]uint32, pps.NumTileColumnsMinus1)
			for i := range pps.ColumnWidthMinus1 {
				pps.ColumnWidthMinus1[i] = sr.ue()
			}
			pps.RowHeightMinus1 = make([]uint32, pps.NumTileRowsMinus1)
			for i := range pps.RowHeightMinus1 {
				pps.RowHeightMinus1[i] = sr.ue()
			}
		}
		pps.LoopFilterAcrossTilesEnabledFlag = sr.flag()
	}
	pps.TilesSectionEndBits = sr.pos()

	pps.LoopFilterAcrossSlicesEnabledFlag = sr.flag()
	pps.DeblockingFilterControlPresentFlag = sr.flag()
	if pps.DeblockingFilterControlPresentFlag == 1 {
		pps.DeblockingFilterOverrideEnabledFlag = sr.flag()
		pps.PpsDeblockingFilterDisabledFlag = sr.flag()
		if pps.PpsDeblockingFilterDisabledFlag == 0 {
			pps.BetaOffsetDiv2 = sr.se()
			pps.TcOffsetDiv2 = sr.se()
		}
	}
	pps.ScalingListDataPresentFlag = sr.flag()
	if pps.ScalingListDataPresentFlag == 1 {
		parseScalingListData(sr)
	}
	pps.ListsModificationPresentFlag = sr.flag()
	pps.Log2ParallelMergeLevelMinus2 = sr.ue()
	pps.SliceSegmentHeaderExtensionPresentFlag = sr.flag()
	pps.PpsExtensionPresentFlag = sr.flag()
	if pps.PpsExtensionPresentFlag == 1 {
		pps.PpsRangeExtensionFlag = sr.flag()
		pps.PpsMultilayerExtensionFlag = sr.flag()
		pps.Pps3dExtensionFlag = sr.flag()
		pps.PpsSccExtensionFlag = sr.flag()
		sr.skip(4) // pps_extension_4bits

		if pps.PpsRangeExtensionFlag == 1 {
			parsePpsRangeExtension(sr, &pps)
		}
		// scc扩展会在slice header中增加字段，不支持
		if pps.PpsSccExtensionFlag == 1 && sr.ok() {
			return nil, base.NewErrHevcUnsupported("pps scc extension")
		}
	}

	if !sr.ok() {
		return nil, sr.err
	}
	return &pps, nil
}

// 7.3.2.3.2 Picture parameter set range extension syntax
func parsePpsRangeExtension(sr *syntaxReader, pps *Pps) {
	if pps.TransformSkipEnabledFlag == 1 {
		sr.ue() // log2_max_transform_skip_block_size_minus2
	}
	sr.skip(1) // cross_component_prediction_enabled_flag
	pps.ChromaQpOffsetListEnabledFlag = sr.flag()
	if pps.ChromaQpOffsetListEnabledFlag == 1 {
		sr.ue() // diff_cu_chroma_qp_offset_depth
		chromaQpOffsetListLenMinus1 := sr.ue()
		if !sr.check(chromaQpOffsetListLenMinus1 < 6, base.ErrHevc) {
			return
		}
		for i := uint32(0); i <= chromaQpOffsetListLenMinus1; i++ {
			sr.se() // cb_qp_offset_list
			sr.se() // cr_qp_offset_list
		}
	}
	sr.ue() // log2_sao_offset_scale_luma
	sr.ue() // log2_sao_offset_scale_chroma
}
