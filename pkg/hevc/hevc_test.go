// Copyright 2020, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package hevc

import (
	"math"
	"testing"

	"github.com/q191201771/naza/pkg/assert"
	"github.com/q191201771/tilemerge/pkg/innertest"
)

func TestNaluType(t *testing.T) {
	assert.Equal(t, NaluTypeVps, CalcNaluType(innertest.Vps1080p))
	assert.Equal(t, NaluTypeSps, CalcNaluType(innertest.Sps1080p))
	assert.Equal(t, NaluTypePps, CalcNaluType(innertest.Pps1080p))
	assert.Equal(t, "VPS", CalcNaluTypeReadable(innertest.Vps1080p))
	assert.Equal(t, "SPS", CalcNaluTypeReadable(innertest.Sps1080p))
	assert.Equal(t, "PPS", CalcNaluTypeReadable(innertest.Pps1080p))
	assert.Equal(t, "unknown", CalcNaluTypeReadable([]byte{0x7E, 0x01}))
	assert.Equal(t, "IDR_W_RADL", CalcNaluTypeReadable([]byte{0x26, 0x01}))

	assert.Equal(t, uint8(0), ParseLayerId([]byte{0x26, 0x01}))
	assert.Equal(t, uint8(1), ParseLayerId([]byte{0x26, 0x09}))
	assert.Equal(t, uint8(33), ParseLayerId([]byte{0x27, 0x09}))

	assert.Equal(t, true, IsIrapNalu(NaluTypeSliceBlaWlp))
	assert.Equal(t, true, IsIrapNalu(NaluTypeSliceCranut))
	assert.Equal(t, false, IsIrapNalu(NaluTypeSliceTrailR))
	assert.Equal(t, true, IsIdrNalu(NaluTypeSliceIdrNlp))
	assert.Equal(t, false, IsIdrNalu(NaluTypeSliceCranut))
	assert.Equal(t, true, IsSliceNalu(NaluTypeSliceRaslR))
	assert.Equal(t, false, IsSliceNalu(NaluTypeVps))
	assert.Equal(t, true, IsParameterSetNalu(NaluTypePps))
	assert.Equal(t, false, IsParameterSetNalu(NaluTypeSei))
}

func TestCeilLog2(t *testing.T) {
	golden := map[uint32]uint32{
		0:              0,
		1:              0,
		2:              1,
		3:              2,
		4:              2,
		5:              3,
		510:            9,
		512:            9,
		513:            10,
		1 << 31:        31,
		math.MaxUint32: 32,
	}
	for in, out := range golden {
		assert.Equal(t, out, CeilLog2(in))
	}
}

func TestRbspStopBitPos(t *testing.T) {
	assert.Equal(t, 0, RbspStopBitPos([]byte{0x80}))
	assert.Equal(t, 7, RbspStopBitPos([]byte{0x01}))
	assert.Equal(t, 9, RbspStopBitPos([]byte{0x12, 0x40, 0x00}))
	assert.Equal(t, -1, RbspStopBitPos([]byte{0x00, 0x00}))
	assert.Equal(t, -1, RbspStopBitPos(nil))
}
