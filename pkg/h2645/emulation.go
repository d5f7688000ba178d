// Copyright 2022, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package h2645

// RemoveEmulationPrevention 去除防竞争字节，也即 0x00 0x00 0x03 中的 0x03
//
// 返回新的内存块，不修改b
func RemoveEmulationPrevention(b []byte) []byte {
	ret := make([]byte, 0, len(b))
	zeros := 0
	for _, c := range b {
		if zeros >= 2 && c == 0x03 {
			zeros = 0
			continue
		}
		ret = append(ret, c)
		if c == 0 {
			zeros++
		} else {
			zeros = 0
		}
	}
	return ret
}

// AddEmulationPrevention 添加防竞争字节
//
// 连续两个0x00之后如果是 0x00 ~ 0x03 ，则插入0x03。
// 以cabac_zero_word（0x0000）结尾时，在尾部追加0x03
//
func AddEmulationPrevention(b []byte) []byte {
	ret := make([]byte, 0, len(b)+len(b)/64+2)
	zeros := 0
	for _, c := range b {
		if zeros >= 2 && c <= 0x03 {
			ret = append(ret, 0x03)
			zeros = 0
		}
		ret = append(ret, c)
		if c == 0 {
			zeros++
		} else {
			zeros = 0
		}
	}
	if zeros >= 2 {
		ret = append(ret, 0x03)
	}
	return ret
}

// EmulationPreventionCount 统计防竞争字节的个数，用于调试
func EmulationPreventionCount(b []byte) int {
	n := 0
	zeros := 0
	for _, c := range b {
		if zeros >= 2 && c == 0x03 {
			n++
			zeros = 0
			continue
		}
		if c == 0 {
			zeros++
		} else {
			zeros = 0
		}
	}
	return n
}
