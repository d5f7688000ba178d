// Copyright 2022, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package hevc

import "github.com/q191201771/naza/pkg/nazalog"

var Log = nazalog.GetGlobalLogger()

// 取值范围的上限，超过时认为码流有问题
const (
	maxVpsCount           = 16
	maxSpsCount           = 16
	maxPpsCount           = 64
	maxShortTermRefPicSet = 64
	maxLongTermRefPicSps  = 32
	maxDeltaPocs          = 16
	maxSubLayers          = 7
	maxRefIdx             = 15
	maxTileColumnsOrRows  = 64
	maxEntryPointOffsets  = 1 << 16
)
