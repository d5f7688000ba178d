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

// ProfileTierLevel 只保留general部分，sub layer部分跳过
type ProfileTierLevel struct {
	GeneralProfileSpace              uint8
	GeneralTierFlag                  uint8
	GeneralProfileIdc                uint8
	GeneralProfileCompatibilityFlags uint32
	GeneralConstraintIndicatorFlags  uint64 // 48 bit
	GeneralLevelIdc                  uint8
}

type Vps struct {
	VpsId                 uint32
	MaxLayersMinus1       uint8
	MaxSubLayersMinus1    uint8
	TemporalIdNestingFlag uint8
	Ptl                   ProfileTierLevel
}

// ParseVps
//
// @param nal: 包含2字节nal header，可以包含防竞争字节
//
func ParseVps(nal []byte) (*Vps, error) {
	r, _ := newRbspReader(nal)
	sr := newSyntaxReader(r)
	sr.skip(16)

	var vps Vps
	vps.VpsId = sr.u(4)
	sr.skip(2) // vps_base_layer_internal_flag, vps_base_layer_available_flag
	vps.MaxLayersMinus1 = sr.u8(6)
	vps.MaxSubLayersMinus1 = sr.u8(3)
	vps.TemporalIdNestingFlag = sr.flag()
	sr.skip(16) // vps_reserved_0xffff_16bits
	if !sr.check(vps.MaxSubLayersMinus1 < maxSubLayers, base.ErrHevc) {
		return nil, sr.err
	}
	vps.Ptl = parseProfileTierLevel(sr, true, vps.MaxSubLayersMinus1)
	if !sr.ok() {
		return nil, sr.err
	}
	return &vps, nil
}

// 7.3.3 Profile, tier and level syntax
func parseProfileTierLevel(sr *syntaxReader, profilePresentFlag bool, maxNumSubLayersMinus1 uint8) ProfileTierLevel {
	var ptl ProfileTierLevel
	if profilePresentFlag {
		ptl.GeneralProfileSpace = sr.u8(2)
		ptl.GeneralTierFlag = sr.flag()
		ptl.GeneralProfileIdc = sr.u8(5)
		ptl.GeneralProfileCompatibilityFlags = sr.u(32)
		hi := sr.u(16)
		lo := sr.u(32)
		ptl.GeneralConstraintIndicatorFlags = uint64(hi)<<32 | uint64(lo)
	}
	ptl.GeneralLevelIdc = sr.u8(8)

	var subLayerProfilePresentFlag [maxSubLayers]uint8
	var subLayerLevelPresentFlag [maxSubLayers]uint8
	for i := uint8(0); i < maxNumSubLayersMinus1; i++ {
		subLayerProfilePresentFlag[i] = sr.flag()
		subLayerLevelPresentFlag[i] = sr.flag()
	}
	if maxNumSubLayersMinus1 > 0 {
		for i := maxNumSubLayersMinus1; i < 8; i++ {
			sr.skip(2) // reserved_zero_2bits
		}
	}
	for i := uint8(0); i < maxNumSubLayersMinus1; i++ {
		if subLayerProfilePresentFlag[i] == 1 {
			sr.skip(88)
		}
		if subLayerLevelPresentFlag[i] == 1 {
			sr.skip(8)
		}
	}
	return ptl
}
