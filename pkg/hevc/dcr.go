// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package hevc

import (
	"fmt"

	"github.com/q191201771/naza/pkg/bele"
	"github.com/q191201771/tilemerge/pkg/base"
)

// ISO_IEC_14496-15 8.3.3.1 HEVCDecoderConfigurationRecord
//
// aligned(8) class HEVCDecoderConfigurationRecord {
//     unsigned int(8) configurationVersion = 1;
//     unsigned int(2) general_profile_space;
//     unsigned int(1) general_tier_flag;
//     unsigned int(5) general_profile_idc;
//     unsigned int(32) general_profile_compatibility_flags;
//     unsigned int(48) general_constraint_indicator_flags;
//     unsigned int(8) general_level_idc;
//     bit(4) reserved = '1111'b;
//     unsigned int(12) min_spatial_segmentation_idc;
//     bit(6) reserved = '111111'b;
//     unsigned int(2) parallelismType;
//     bit(6) reserved = '111111'b;
//     unsigned int(2) chromaFormat;
//     bit(5) reserved = '11111'b;
//     unsigned int(3) bitDepthLumaMinus8;
//     bit(5) reserved = '11111'b;
//     unsigned int(3) bitDepthChromaMinus8;
//     bit(16) avgFrameRate;
//     bit(2) constantFrameRate;
//     bit(3) numTemporalLayers;
//     bit(1) temporalIdNested;
//     unsigned int(2) lengthSizeMinusOne;
//     unsigned int(8) numOfArrays;
//     for (j=0; j < numOfArrays; j++) {
//         bit(1) array_completeness;
//         unsigned int(1) reserved = 0;
//         unsigned int(6) NAL_unit_type;
//         unsigned int(16) numNalus;
//         for (i=0; i< numNalus; i++) {
//             unsigned int(16) nalUnitLength;
//             bit(8*nalUnitLength) nalUnit;
//         }
//     }
// }

const dcrHeaderSize = 23

type DcrArray struct {
	ArrayCompleteness uint8
	NaluType          uint8
	Nalus             [][]byte
}

type DecoderConfigurationRecord struct {
	ConfigurationVersion             uint8
	GeneralProfileSpace              uint8
	GeneralTierFlag                  uint8
	GeneralProfileIdc                uint8
	GeneralProfileCompatibilityFlags uint32
	GeneralConstraintIndicatorFlags  uint64
	GeneralLevelIdc                  uint8
	MinSpatialSegmentationIdc        uint16
	ParallelismType                  uint8
	ChromaFormat                     uint8
	BitDepthLumaMinus8               uint8
	BitDepthChromaMinus8             uint8
	AvgFrameRate                     uint16
	ConstantFrameRate                uint8
	NumTemporalLayers                uint8
	TemporalIdNested                 uint8
	LengthSizeMinusOne               uint8
	Arrays                           []DcrArray
}

// ParseDecoderConfigurationRecord
//
// @param b: hvcC box的内容，注意，解析出的nalu引用b的内存
//
func ParseDecoderConfigurationRecord(b []byte) (*DecoderConfigurationRecord, error) {
	if len(b) < dcrHeaderSize {
		return nil, fmt.Errorf("%w. len=%d", base.ErrHevcDcr, len(b))
	}
	var dcr DecoderConfigurationRecord
	dcr.ConfigurationVersion = b[0]
	dcr.GeneralProfileSpace = b[1] >> 6
	dcr.GeneralTierFlag = (b[1] >> 5) & 0x01
	dcr.GeneralProfileIdc = b[1] & 0x1F
	dcr.GeneralProfileCompatibilityFlags = bele.BeUint32(b[2:])
	dcr.GeneralConstraintIndicatorFlags = uint64(bele.BeUint16(b[6:]))<<32 | uint64(bele.BeUint32(b[8:]))
	dcr.GeneralLevelIdc = b[12]
	dcr.MinSpatialSegmentationIdc = bele.BeUint16(b[13:]) & 0x0FFF
	dcr.ParallelismType = b[15] & 0x03
	dcr.ChromaFormat = b[16] & 0x03
	dcr.BitDepthLumaMinus8 = b[17] & 0x07
	dcr.BitDepthChromaMinus8 = b[18] & 0x07
	dcr.AvgFrameRate = bele.BeUint16(b[19:])
	dcr.ConstantFrameRate = b[21] >> 6
	dcr.NumTemporalLayers = (b[21] >> 3) & 0x07
	dcr.TemporalIdNested = (b[21] >> 2) & 0x01
	dcr.LengthSizeMinusOne = b[21] & 0x03
	numOfArrays := int(b[22])

	pos := dcrHeaderSize
	for i := 0; i < numOfArrays; i++ {
		if len(b)-pos < 3 {
			return nil, fmt.Errorf("%w. incomplete array header, i=%d", base.ErrHevcDcr, i)
		}
		var arr DcrArray
		arr.ArrayCompleteness = b[pos] >> 7
		arr.NaluType = b[pos] & 0x3F
		numNalus := int(bele.BeUint16(b[pos+1:]))
		pos += 3
		for j := 0; j < numNalus; j++ {
			if len(b)-pos < 2 {
				return nil, fmt.Errorf("%w. incomplete nalu length, i=%d, j=%d", base.ErrHevcDcr, i, j)
			}
			l := int(bele.BeUint16(b[pos:]))
			pos += 2
			if len(b)-pos < l {
				return nil, fmt.Errorf("%w. incomplete nalu, i=%d, j=%d, len=%d", base.ErrHevcDcr, i, j, l)
			}
			arr.Nalus = append(arr.Nalus, b[pos:pos+l])
			pos += l
		}
		dcr.Arrays = append(dcr.Arrays, arr)
	}
	return &dcr, nil
}

// Pack 序列化
func (dcr *DecoderConfigurationRecord) Pack() []byte {
	n := dcrHeaderSize
	for _, arr := range dcr.Arrays {
		n += 3
		for _, nalu := range arr.Nalus {
			n += 2 + len(nalu)
		}
	}
	out := make([]byte, n)
	out[0] = dcr.ConfigurationVersion
	out[1] = dcr.GeneralProfileSpace<<6 | (dcr.GeneralTierFlag&0x01)<<5 | dcr.GeneralProfileIdc&0x1F
	bele.BePutUint32(out[2:], dcr.GeneralProfileCompatibilityFlags)
	bele.BePutUint16(out[6:], uint16(dcr.GeneralConstraintIndicatorFlags>>32))
	bele.BePutUint32(out[8:], uint32(dcr.GeneralConstraintIndicatorFlags))
	out[12] = dcr.GeneralLevelIdc
	bele.BePutUint16(out[13:], 0xF000|dcr.MinSpatialSegmentationIdc&0x0FFF)
	out[15] = 0xFC | dcr.ParallelismType&0x03
	out[16] = 0xFC | dcr.ChromaFormat&0x03
	out[17] = 0xF8 | dcr.BitDepthLumaMinus8&0x07
	out[18] = 0xF8 | dcr.BitDepthChromaMinus8&0x07
	bele.BePutUint16(out[19:], dcr.AvgFrameRate)
	out[21] = dcr.ConstantFrameRate<<6 | (dcr.NumTemporalLayers&0x07)<<3 | (dcr.TemporalIdNested&0x01)<<2 | dcr.LengthSizeMinusOne&0x03
	out[22] = uint8(len(dcr.Arrays))

	pos := dcrHeaderSize
	for _, arr := range dcr.Arrays {
		out[pos] = arr.ArrayCompleteness<<7 | arr.NaluType&0x3F
		bele.BePutUint16(out[pos+1:], uint16(len(arr.Nalus)))
		pos += 3
		for _, nalu := range arr.Nalus {
			bele.BePutUint16(out[pos:], uint16(len(nalu)))
			pos += 2
			copy(out[pos:], nalu)
			pos += len(nalu)
		}
	}
	return out
}

// LengthSize nalu长度字段的字节数
func (dcr *DecoderConfigurationRecord) LengthSize() int {
	return int(dcr.LengthSizeMinusOne) + 1
}

// Nalus 所有类型为typ的nalu
func (dcr *DecoderConfigurationRecord) Nalus(typ uint8) [][]byte {
	var ret [][]byte
	for _, arr := range dcr.Arrays {
		if arr.NaluType == typ {
			ret = append(ret, arr.Nalus...)
		}
	}
	return ret
}

// ParameterSets 按vps、sps、pps的顺序返回所有参数集
func (dcr *DecoderConfigurationRecord) ParameterSets() [][]byte {
	var ret [][]byte
	ret = append(ret, dcr.Nalus(NaluTypeVps)...)
	ret = append(ret, dcr.Nalus(NaluTypeSps)...)
	ret = append(ret, dcr.Nalus(NaluTypePps)...)
	return ret
}

// BuildDecoderConfigurationRecord 使用vps、sps、pps构造，general相关字段从第一个sps中获取
//
// 长度字段固定为4字节
func BuildDecoderConfigurationRecord(vpsList, spsList, ppsList [][]byte) (*DecoderConfigurationRecord, error) {
	if len(vpsList) == 0 || len(spsList) == 0 || len(ppsList) == 0 {
		return nil, fmt.Errorf("%w. vps=%d, sps=%d, pps=%d", base.ErrHevcDcr, len(vpsList), len(spsList), len(ppsList))
	}
	sps, err := ParseSps(spsList[0])
	if err != nil {
		return nil, err
	}

	dcr := &DecoderConfigurationRecord{
		ConfigurationVersion:             1,
		GeneralProfileSpace:              sps.Ptl.GeneralProfileSpace,
		GeneralTierFlag:                  sps.Ptl.GeneralTierFlag,
		GeneralProfileIdc:                sps.Ptl.GeneralProfileIdc,
		GeneralProfileCompatibilityFlags: sps.Ptl.GeneralProfileCompatibilityFlags,
		GeneralConstraintIndicatorFlags:  sps.Ptl.GeneralConstraintIndicatorFlags,
		GeneralLevelIdc:                  sps.Ptl.GeneralLevelIdc,
		ChromaFormat:                     uint8(sps.ChromaFormatIdc),
		BitDepthLumaMinus8:               uint8(sps.BitDepthLumaMinus8),
		BitDepthChromaMinus8:             uint8(sps.BitDepthChromaMinus8),
		NumTemporalLayers:                sps.MaxSubLayersMinus1 + 1,
		TemporalIdNested:                 sps.TemporalIdNestingFlag,
		LengthSizeMinusOne:               3,
	}
	for _, item := range []struct {
		typ   uint8
		nalus [][]byte
	}{
		{NaluTypeVps, vpsList},
		{NaluTypeSps, spsList},
		{NaluTypePps, ppsList},
	} {
		dcr.Arrays = append(dcr.Arrays, DcrArray{
			ArrayCompleteness: 1,
			NaluType:          item.typ,
			Nalus:             item.nalus,
		})
	}
	return dcr, nil
}
