// Copyright 2020, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

// Package hevc h265码流的语法解析，只解析改写slice header所需要的字段
package hevc

import (
	"github.com/q191201771/tilemerge/pkg/expgolomb"
	"github.com/q191201771/tilemerge/pkg/h2645"
)

// ISO_IEC_23008-2_2013.pdf
// Table 7-1 – NAL unit type codes and NAL unit type classes
const (
	NaluTypeSliceTrailN uint8 = 0 // 0x0
	NaluTypeSliceTrailR uint8 = 1 // 0x01
	NaluTypeSliceTsaN   uint8 = 2 // 0x02
	NaluTypeSliceTsaR   uint8 = 3 // 0x03
	NaluTypeSliceStsaN  uint8 = 4 // 0x04
	NaluTypeSliceStsaR  uint8 = 5 // 0x05
	NaluTypeSliceRadlN  uint8 = 6 // 0x06
	NaluTypeSliceRadlR  uint8 = 7 // 0x07
	NaluTypeSliceRaslN  uint8 = 8 // 0x08
	NaluTypeSliceRaslR  uint8 = 9 // 0x09

	NaluTypeSliceBlaWlp       uint8 = 16 // 0x10
	NaluTypeSliceBlaWradl     uint8 = 17 // 0x11
	NaluTypeSliceBlaNlp       uint8 = 18 // 0x12
	NaluTypeSliceIdr          uint8 = 19 // 0x13
	NaluTypeSliceIdrNlp       uint8 = 20 // 0x14
	NaluTypeSliceCranut       uint8 = 21 // 0x15
	NaluTypeSliceRsvIrapVcl22 uint8 = 22 // 0x16
	NaluTypeSliceRsvIrapVcl23 uint8 = 23 // 0x17

	NaluTypeVps       uint8 = 32 // 0x20
	NaluTypeSps       uint8 = 33 // 0x21
	NaluTypePps       uint8 = 34 // 0x22
	NaluTypeAud       uint8 = 35 // 0x23
	NaluTypeEos       uint8 = 36 // 0x24
	NaluTypeEob       uint8 = 37 // 0x25
	NaluTypeFd        uint8 = 38 // 0x26
	NaluTypeSei       uint8 = 39 // 0x27
	NaluTypeSeiSuffix uint8 = 40 // 0x28
)

// slice_type
const (
	SliceTypeB uint32 = 0
	SliceTypeP uint32 = 1
	SliceTypeI uint32 = 2
)

var naluTypeMapping = map[uint8]string{
	NaluTypeSliceTrailN:   "TRAIL_N",
	NaluTypeSliceTrailR:   "TRAIL_R",
	NaluTypeSliceTsaN:     "TSA_N",
	NaluTypeSliceTsaR:     "TSA_R",
	NaluTypeSliceStsaN:    "STSA_N",
	NaluTypeSliceStsaR:    "STSA_R",
	NaluTypeSliceRadlN:    "RADL_N",
	NaluTypeSliceRadlR:    "RADL_R",
	NaluTypeSliceRaslN:    "RASL_N",
	NaluTypeSliceRaslR:    "RASL_R",
	NaluTypeSliceBlaWlp:   "BLA_W_LP",
	NaluTypeSliceBlaWradl: "BLA_W_RADL",
	NaluTypeSliceBlaNlp:   "BLA_N_LP",
	NaluTypeSliceIdr:      "IDR_W_RADL",
	NaluTypeSliceIdrNlp:   "IDR_N_LP",
	NaluTypeSliceCranut:   "CRA",
	NaluTypeVps:           "VPS",
	NaluTypeSps:           "SPS",
	NaluTypePps:           "PPS",
	NaluTypeAud:           "AUD",
	NaluTypeEos:           "EOS",
	NaluTypeEob:           "EOB",
	NaluTypeFd:            "FD",
	NaluTypeSei:           "SEI",
	NaluTypeSeiSuffix:     "SEI_SUFFIX",
}

func ParseNaluType(v uint8) uint8 {
	// 6 bit in middle
	// 0*** ***0
	// or return (nalu[0] >> 1) & 0x3F
	return (v & 0x7E) >> 1
}

func CalcNaluType(nalu []byte) uint8 {
	return ParseNaluType(nalu[0])
}

func CalcNaluTypeReadable(nalu []byte) string {
	b, ok := naluTypeMapping[CalcNaluType(nalu)]
	if !ok {
		return "unknown"
	}
	return b
}

// ParseLayerId nuh_layer_id
func ParseLayerId(nalu []byte) uint8 {
	return (nalu[0]&0x01)<<5 | nalu[1]>>3
}

// IsIrapNalu 随机访问图像，slice header中带有no_output_of_prior_pics_flag
func IsIrapNalu(typ uint8) bool {
	return typ >= NaluTypeSliceBlaWlp && typ <= NaluTypeSliceRsvIrapVcl23
}

func IsIdrNalu(typ uint8) bool {
	return typ == NaluTypeSliceIdr || typ == NaluTypeSliceIdrNlp
}

// IsSliceNalu VCL nalu
func IsSliceNalu(typ uint8) bool {
	return typ < 32
}

func IsParameterSetNalu(typ uint8) bool {
	return typ == NaluTypeVps || typ == NaluTypeSps || typ == NaluTypePps
}

// newRbspReader 去除防竞争字节，位置从nal header的第一位开始计数
func newRbspReader(nal []byte) (*expgolomb.Reader, []byte) {
	rbsp := h2645.RemoveEmulationPrevention(nal)
	return expgolomb.NewReader(rbsp), rbsp
}

// RbspStopBitPos rbsp_stop_one_bit的位置，也即最后一个值为1的位
//
// 找不到时返回-1
func RbspStopBitPos(rbsp []byte) int {
	for i := len(rbsp) - 1; i >= 0; i-- {
		b := rbsp[i]
		if b == 0 {
			continue
		}
		for j := 0; j < 8; j++ {
			if b&(1<<uint(j)) != 0 {
				return i*8 + 7 - j
			}
		}
	}
	return -1
}

// CeilLog2 Ceil(Log2(v))，v为0或1时返回0
func CeilLog2(v uint32) uint32 {
	var n uint32
	for (uint64(1) << n) < uint64(v) {
		n++
	}
	return n
}
