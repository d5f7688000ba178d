// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

import "strings"

// 版本信息相关
// 一部分版本信息使用了naza.bininfo，另外一些信息在本文件提供，并打入可执行文件、日志中

// TileMergeVersion 版本，该变量由外部脚本修改维护
const TileMergeVersion = "v0.1.0"

const ConfVersion = "v0.1.0"

var (
	TileMergeLibraryName = "tilemerge"
	TileMergeGithubRepo  = "github.com/q191201771/tilemerge"
	TileMergeGithubSite  = "https://github.com/q191201771/tilemerge"

	// TileMergeFullInfo e.g. tilemerge v0.1.0 (github.com/q191201771/tilemerge)
	TileMergeFullInfo = TileMergeLibraryName + " " + TileMergeVersion + " (" + TileMergeGithubRepo + ")"

	// TileMergeVersionDot e.g. 0.1.0
	TileMergeVersionDot string

	// TileMergeWriterName 写入合并后流的文件头或者ts service中，e.g. tilemerge0.1.0
	TileMergeWriterName string
)

func init() {
	TileMergeVersionDot = strings.TrimPrefix(TileMergeVersion, "v")
	TileMergeWriterName = TileMergeLibraryName + TileMergeVersionDot
}
