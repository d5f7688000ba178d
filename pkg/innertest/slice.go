// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package innertest

const (
	SliceTypeB uint32 = 0
	SliceTypeP uint32 = 1
	SliceTypeI uint32 = 2
)

type LongTermParam struct {
	LtIdxSps               uint32 // i < num_long_term_sps时使用
	PocLsbLt               uint32
	UsedByCurrPicLtFlag    uint8
	DeltaPocMsbPresentFlag uint8
	DeltaPocMsbCycleLt     uint32
}

type PredWeightParam struct {
	LumaLog2WeightDenom        uint32
	DeltaChromaLog2WeightDenom int32
	LumaWeightL0Flag           []uint8
	ChromaWeightL0Flag         []uint8
	LumaWeightL1Flag           []uint8
	ChromaWeightL1Flag         []uint8
}

// SliceParam slice_segment_header()中的字段，是否写入由对应的sps、pps参数决定
type SliceParam struct {
	NaluType                   uint8
	FirstSliceSegmentInPicFlag uint8
	NoOutputOfPriorPicsFlag    uint8
	DependentSliceSegmentFlag  uint8
	SliceSegmentAddress        uint32
	SliceType                  uint32
	PicOutputFlag              uint8
	PicOrderCntLsb             uint32

	ShortTermRefPicSetSpsFlag uint8
	StRps                     *RpsParam // ShortTermRefPicSetSpsFlag为0时使用
	ShortTermRefPicSetIdx     uint32
	NumLongTermSps            uint32
	LongTerm                  []LongTermParam
	SliceTemporalMvpEnabled   uint8

	SaoLuma   uint8
	SaoChroma uint8

	NumRefIdxActiveOverride  bool
	NumRefIdxL0ActiveMinus1  uint32
	NumRefIdxL1ActiveMinus1  uint32
	NumPicTotalCurr          uint32 // 决定list_entry的位数
	ListEntryL0              []uint32
	ListEntryL1              []uint32
	MvdL1ZeroFlag            uint8
	CabacInitFlag            uint8
	CollocatedFromL0Flag     uint8
	CollocatedRefIdx         uint32
	PredWeight               *PredWeightParam
	FiveMinusMaxNumMergeCand uint32

	SliceQpDelta                int32
	SliceCbQpOffset             int32
	SliceCrQpOffset             int32
	CuChromaQpOffsetEnabledFlag uint8
	DeblockingFilterOverride    uint8
	SliceDeblockingDisabled     uint8
	SliceBetaOffsetDiv2         int32
	SliceTcOffsetDiv2           int32
	LoopFilterAcrossSlices      uint8

	OffsetLenMinus1   uint32
	EntryPointOffsets []uint32
	HeaderExtension   []byte

	Payload []byte
}

// SliceMarks 写入过程中记录的位置，单位bit，从nal header开始计数，不包含防竞争字节
type SliceMarks struct {
	AddressPos     uint
	QpDeltaPos     int // dependent slice segment时为-1
	EntryPointPos  uint
	HeaderEndPos   uint
	PayloadBytePos uint // slice data在rbsp中的字节位置
}

func isIrap(t uint8) bool {
	return t >= 16 && t <= 23
}

func isIdr(t uint8) bool {
	return t == 19 || t == 20
}

// BuildSlice 构造slice nal，返回添加了防竞争字节的nal以及各字段的位置
func BuildSlice(sps SpsParam, pps PpsParam, s SliceParam) ([]byte, SliceMarks) {
	var marks SliceMarks
	nw := NewNalWriter(s.NaluType)
	nw.U8(1, s.FirstSliceSegmentInPicFlag)
	if isIrap(s.NaluType) {
		nw.U8(1, s.NoOutputOfPriorPicsFlag)
	}
	nw.Ue(pps.PpsId)
	marks.AddressPos = nw.Pos()
	if s.FirstSliceSegmentInPicFlag == 0 {
		if pps.DependentSliceSegmentsEnabled {
			nw.U8(1, s.DependentSliceSegmentFlag)
		}
		marks.AddressPos = nw.Pos()
		nw.U(sps.AddressBits(), s.SliceSegmentAddress)
	}

	marks.QpDeltaPos = -1
	if s.DependentSliceSegmentFlag == 0 {
		writeIndependentSliceHeader(nw, &sps, &pps, &s, &marks)
	}

	marks.EntryPointPos = nw.Pos()
	if pps.Tiles != nil || pps.EntropyCodingSync {
		nw.Ue(uint32(len(s.EntryPointOffsets)))
		if len(s.EntryPointOffsets) > 0 {
			nw.Ue(s.OffsetLenMinus1)
			for _, v := range s.EntryPointOffsets {
				nw.U(uint(s.OffsetLenMinus1+1), v)
			}
		}
	}
	if pps.SliceSegmentHeaderExtensionPresent {
		nw.Ue(uint32(len(s.HeaderExtension)))
		for _, b := range s.HeaderExtension {
			nw.U8(8, b)
		}
	}
	marks.HeaderEndPos = nw.Pos()
	marks.PayloadBytePos = (marks.HeaderEndPos + 8) / 8
	return nw.Slice(s.Payload), marks
}

func writeIndependentSliceHeader(nw *NalWriter, sps *SpsParam, pps *PpsParam, s *SliceParam, marks *SliceMarks) {
	nw.U(uint(pps.NumExtraSliceHeaderBits), 0) // slice_reserved_flag
	nw.Ue(s.SliceType)
	if pps.OutputFlagPresent {
		nw.U8(1, s.PicOutputFlag)
	}
	if sps.SeparateColourPlaneFlag == 1 {
		nw.U(2, 0) // colour_plane_id
	}
	if !isIdr(s.NaluType) {
		nw.U(uint(sps.Log2MaxPocLsbMinus4+4), s.PicOrderCntLsb)
		nw.U8(1, s.ShortTermRefPicSetSpsFlag)
		if s.ShortTermRefPicSetSpsFlag == 0 {
			WriteRps(nw, uint32(len(sps.StRps)), uint32(len(sps.StRps)), s.StRps)
		} else if len(sps.StRps) > 1 {
			nw.U(CeilLog2(uint32(len(sps.StRps))), s.ShortTermRefPicSetIdx)
		}
		if sps.LongTermRefPicsPresent {
			numLtSps := uint32(len(sps.UsedByCurrPicLtSpsFlag))
			if numLtSps > 0 {
				nw.Ue(s.NumLongTermSps)
			}
			nw.Ue(uint32(len(s.LongTerm)) - s.NumLongTermSps)
			for i, lt := range s.LongTerm {
				if uint32(i) < s.NumLongTermSps {
					if numLtSps > 1 {
						nw.U(CeilLog2(numLtSps), lt.LtIdxSps)
					}
				} else {
					nw.U(uint(sps.Log2MaxPocLsbMinus4+4), lt.PocLsbLt)
					nw.U8(1, lt.UsedByCurrPicLtFlag)
				}
				nw.U8(1, lt.DeltaPocMsbPresentFlag)
				if lt.DeltaPocMsbPresentFlag == 1 {
					nw.Ue(lt.DeltaPocMsbCycleLt)
				}
			}
		}
		if sps.TemporalMvp {
			nw.U8(1, s.SliceTemporalMvpEnabled)
		}
	}
	if sps.SampleAdaptiveOffset {
		nw.U8(1, s.SaoLuma)
		if sps.ChromaArrayType() != 0 {
			nw.U8(1, s.SaoChroma)
		}
	}

	if s.SliceType == SliceTypeP || s.SliceType == SliceTypeB {
		l0 := pps.NumRefIdxL0DefaultActiveMinus1
		l1 := pps.NumRefIdxL1DefaultActiveMinus1
		writeFlag(nw, s.NumRefIdxActiveOverride)
		if s.NumRefIdxActiveOverride {
			l0 = s.NumRefIdxL0ActiveMinus1
			nw.Ue(l0)
			if s.SliceType == SliceTypeB {
				l1 = s.NumRefIdxL1ActiveMinus1
				nw.Ue(l1)
			}
		}
		if pps.ListsModificationPresent && s.NumPicTotalCurr > 1 {
			n := CeilLog2(s.NumPicTotalCurr)
			writeFlag(nw, s.ListEntryL0 != nil)
			for _, v := range s.ListEntryL0 {
				nw.U(n, v)
			}
			if s.SliceType == SliceTypeB {
				writeFlag(nw, s.ListEntryL1 != nil)
				for _, v := range s.ListEntryL1 {
					nw.U(n, v)
				}
			}
		}
		if s.SliceType == SliceTypeB {
			nw.U8(1, s.MvdL1ZeroFlag)
		}
		if pps.CabacInitPresent {
			nw.U8(1, s.CabacInitFlag)
		}
		if s.SliceTemporalMvpEnabled == 1 {
			fromL0 := uint8(1)
			if s.SliceType == SliceTypeB {
				fromL0 = s.CollocatedFromL0Flag
				nw.U8(1, fromL0)
			}
			if (fromL0 == 1 && l0 > 0) || (fromL0 == 0 && l1 > 0) {
				nw.Ue(s.CollocatedRefIdx)
			}
		}
		if (pps.WeightedPred && s.SliceType == SliceTypeP) || (pps.WeightedBipred && s.SliceType == SliceTypeB) {
			writePredWeightTable(nw, sps, s)
		}
		nw.Ue(s.FiveMinusMaxNumMergeCand)
	}

	marks.QpDeltaPos = int(nw.Pos())
	nw.Se(s.SliceQpDelta)
	if pps.SliceChromaQpOffsetsPresent {
		nw.Se(s.SliceCbQpOffset)
		nw.Se(s.SliceCrQpOffset)
	}
	if pps.ChromaQpOffsetList != nil {
		nw.U8(1, s.CuChromaQpOffsetEnabledFlag)
	}
	deblockingDisabled := pps.PpsDeblockingFilterDisabled
	if pps.DeblockingFilterOverrideEnabled {
		nw.U8(1, s.DeblockingFilterOverride)
	}
	if s.DeblockingFilterOverride == 1 {
		nw.U8(1, s.SliceDeblockingDisabled)
		deblockingDisabled = s.SliceDeblockingDisabled == 1
		if s.SliceDeblockingDisabled == 0 {
			nw.Se(s.SliceBetaOffsetDiv2)
			nw.Se(s.SliceTcOffsetDiv2)
		}
	}
	if pps.LoopFilterAcrossSlices && (s.SaoLuma == 1 || s.SaoChroma == 1 || !deblockingDisabled) {
		nw.U8(1, s.LoopFilterAcrossSlices)
	}
}

func writePredWeightTable(nw *NalWriter, sps *SpsParam, s *SliceParam) {
	pw := s.PredWeight
	nw.Ue(pw.LumaLog2WeightDenom)
	chroma := sps.ChromaArrayType() != 0
	if chroma {
		nw.Se(pw.DeltaChromaLog2WeightDenom)
	}
	writeList := func(luma, chromaFlags []uint8) {
		for _, f := range luma {
			nw.U8(1, f)
		}
		if chroma {
			for _, f := range chromaFlags {
				nw.U8(1, f)
			}
		}
		for i := range luma {
			if luma[i] == 1 {
				nw.Se(3)  // delta_luma_weight
				nw.Se(-2) // luma_offset
			}
			if chroma && chromaFlags[i] == 1 {
				for j := 0; j < 2; j++ {
					nw.Se(-1) // delta_chroma_weight
					nw.Se(5)  // delta_chroma_offset
				}
			}
		}
	}
	writeList(pw.LumaWeightL0Flag, pw.ChromaWeightL0Flag)
	if s.SliceType == SliceTypeB {
		writeList(pw.LumaWeightL1Flag, pw.ChromaWeightL1Flag)
	}
}
