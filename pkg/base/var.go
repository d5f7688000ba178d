// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

import "github.com/q191201771/naza/pkg/nazalog"

var Log = nazalog.GetGlobalLogger()

// ----- tilemerge --------------------
var (
	// TileMergeLogDumpDebugMaxNum 日志级别为debug时，每个流打印改写前后slice header十六进制的次数
	TileMergeLogDumpDebugMaxNum = 8

	// TileMergeDumpHexMaxLen 打印十六进制时最多打印的字节数
	TileMergeDumpHexMaxLen = 64
)
