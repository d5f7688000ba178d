// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package tilemerge

import (
	"github.com/q191201771/tilemerge/pkg/base"
	"github.com/q191201771/tilemerge/pkg/hevc"
)

// RewriteDecoderConfigurationRecord 改写hvcC中的sps和pps，使其描述合并后的图像
//
// sps修改宽高，pps写入tile划分，vps等其他nalu不变。任何一个nalu改写失败时整体失败。
// 输出的nalu长度字段固定为4字节。
//
// @param dcr: 不会被修改
//
func RewriteDecoderConfigurationRecord(dcr []byte, width, height uint32, grid TileGrid) ([]byte, error) {
	record, err := hevc.ParseDecoderConfigurationRecord(dcr)
	if err != nil {
		return nil, base.NewErrTileMergeNonCompliantBitstream(err)
	}

	arrays := make([]hevc.DcrArray, len(record.Arrays))
	for i, arr := range record.Arrays {
		arrays[i] = hevc.DcrArray{
			ArrayCompleteness: arr.ArrayCompleteness,
			NaluType:          arr.NaluType,
			Nalus:             make([][]byte, len(arr.Nalus)),
		}
		for j, nalu := range arr.Nalus {
			switch arr.NaluType {
			case hevc.NaluTypeSps:
				nalu, err = hevc.RewriteSpsGeometry(nalu, width, height)
			case hevc.NaluTypePps:
				nalu, err = RewritePpsTileGrid(nalu, grid)
			}
			if err != nil {
				return nil, err
			}
			arrays[i].Nalus[j] = nalu
		}
	}
	record.Arrays = arrays
	record.LengthSizeMinusOne = outLengthSize - 1
	return record.Pack(), nil
}
