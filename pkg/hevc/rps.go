// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package hevc

import "github.com/q191201771/tilemerge/pkg/base"

// ShortTermRefPicSet st_ref_pic_set推导后的结果
//
// 参考 7.4.8 Short-term reference picture set semantics
type ShortTermRefPicSet struct {
	DeltaPocS0      []int32
	UsedByCurrPicS0 []uint8
	DeltaPocS1      []int32
	UsedByCurrPicS1 []uint8
}

func (s *ShortTermRefPicSet) NumNegativePics() int {
	return len(s.DeltaPocS0)
}

func (s *ShortTermRefPicSet) NumPositivePics() int {
	return len(s.DeltaPocS1)
}

func (s *ShortTermRefPicSet) NumDeltaPocs() int {
	return len(s.DeltaPocS0) + len(s.DeltaPocS1)
}

// NumUsedByCurrPic 参与计算NumPicTotalCurr
func (s *ShortTermRefPicSet) NumUsedByCurrPic() uint32 {
	var n uint32
	for _, v := range s.UsedByCurrPicS0 {
		n += uint32(v)
	}
	for _, v := range s.UsedByCurrPicS1 {
		n += uint32(v)
	}
	return n
}

func (s *ShortTermRefPicSet) appendS0(dPoc int32, used uint8) {
	s.DeltaPocS0 = append(s.DeltaPocS0, dPoc)
	s.UsedByCurrPicS0 = append(s.UsedByCurrPicS0, used)
}

func (s *ShortTermRefPicSet) appendS1(dPoc int32, used uint8) {
	s.DeltaPocS1 = append(s.DeltaPocS1, dPoc)
	s.UsedByCurrPicS1 = append(s.UsedByCurrPicS1, used)
}

// parseShortTermRefPicSet 7.3.7 Short-term reference picture set syntax
//
// @param stRpsIdx: sps中的第几个，slice header中时等于 numShortTermRefPicSets
//
// @param sets: sps中已经解析好的[0, stRpsIdx)
//
func parseShortTermRefPicSet(sr *syntaxReader, stRpsIdx uint32, numShortTermRefPicSets uint32, sets []ShortTermRefPicSet) ShortTermRefPicSet {
	var ret ShortTermRefPicSet

	var interRefPicSetPredictionFlag uint8
	if stRpsIdx != 0 {
		interRefPicSetPredictionFlag = sr.flag()
	}

	if interRefPicSetPredictionFlag == 1 {
		var deltaIdxMinus1 uint32
		if stRpsIdx == numShortTermRefPicSets {
			deltaIdxMinus1 = sr.ue()
		}
		if !sr.check(deltaIdxMinus1+1 <= stRpsIdx && int(stRpsIdx) <= len(sets), base.ErrHevc) {
			return ret
		}
		ref := &sets[stRpsIdx-(deltaIdxMinus1+1)]

		deltaRpsSign := sr.flag()
		absDeltaRpsMinus1 := sr.ue()
		if !sr.check(absDeltaRpsMinus1 < 1<<15, base.ErrHevc) {
			return ret
		}
		deltaRps := (1 - 2*int32(deltaRpsSign)) * int32(absDeltaRpsMinus1+1)

		n := ref.NumDeltaPocs()
		usedByCurrPicFlag := make([]uint8, n+1)
		useDeltaFlag := make([]uint8, n+1)
		for j := 0; j <= n; j++ {
			usedByCurrPicFlag[j] = sr.flag()
			useDeltaFlag[j] = 1
			if usedByCurrPicFlag[j] == 0 {
				useDeltaFlag[j] = sr.flag()
			}
		}
		if !sr.ok() {
			return ret
		}

		numNeg := ref.NumNegativePics()
		numPos := ref.NumPositivePics()

		// (7-61)
		for j := numPos - 1; j >= 0; j-- {
			dPoc := ref.DeltaPocS1[j] + deltaRps
			if dPoc < 0 && useDeltaFlag[numNeg+j] == 1 {
				ret.appendS0(dPoc, usedByCurrPicFlag[numNeg+j])
			}
		}
		if deltaRps < 0 && useDeltaFlag[n] == 1 {
			ret.appendS0(deltaRps, usedByCurrPicFlag[n])
		}
		for j := 0; j < numNeg; j++ {
			dPoc := ref.DeltaPocS0[j] + deltaRps
			if dPoc < 0 && useDeltaFlag[j] == 1 {
				ret.appendS0(dPoc, usedByCurrPicFlag[j])
			}
		}

		// (7-62)
		for j := numNeg - 1; j >= 0; j-- {
			dPoc := ref.DeltaPocS0[j] + deltaRps
			if dPoc > 0 && useDeltaFlag[j] == 1 {
				ret.appendS1(dPoc, usedByCurrPicFlag[j])
			}
		}
		if deltaRps > 0 && useDeltaFlag[n] == 1 {
			ret.appendS1(deltaRps, usedByCurrPicFlag[n])
		}
		for j := 0; j < numPos; j++ {
			dPoc := ref.DeltaPocS1[j] + deltaRps
			if dPoc > 0 && useDeltaFlag[numNeg+j] == 1 {
				ret.appendS1(dPoc, usedByCurrPicFlag[numNeg+j])
			}
		}
		return ret
	}

	numNegativePics := sr.ue()
	numPositivePics := sr.ue()
	if !sr.check(numNegativePics <= maxDeltaPocs && numPositivePics <= maxDeltaPocs, base.ErrHevc) {
		return ret
	}
	var poc int32
	for i := uint32(0); i < numNegativePics; i++ {
		deltaPocS0Minus1 := sr.ue()
		used := sr.flag()
		poc -= int32(deltaPocS0Minus1&0xFFFF) + 1
		ret.appendS0(poc, used)
	}
	poc = 0
	for i := uint32(0); i < numPositivePics; i++ {
		deltaPocS1Minus1 := sr.ue()
		used := sr.flag()
		poc += int32(deltaPocS1Minus1&0xFFFF) + 1
		ret.appendS1(poc, used)
	}
	return ret
}
