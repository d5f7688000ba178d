// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package tilemerge

import "github.com/q191201771/naza/pkg/nazalog"

var Log = nazalog.GetGlobalLogger()

// CtuSize 输入流的CTU大小，只支持64
const CtuSize = 64

// 输出流nalu长度字段的字节数
const outLengthSize = 4

var (
	// RowHeightThreshold 第一列高度不超过该值时，新的tile继续在第一列中往下放
	RowHeightThreshold uint32 = 500

	// GridHeightThreshold 第一列放下新的tile后总高度不超过该值时，继续在第一列中往下放
	GridHeightThreshold uint32 = 2160

	// MaxTileStreams 一个合并会话最多支持的输入流数量
	MaxTileStreams = 25
)

func ctus(v uint32) uint32 {
	return (v + CtuSize - 1) / CtuSize
}
