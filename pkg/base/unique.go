// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

import "github.com/q191201771/naza/pkg/unique"

const (
	UkPreTileMergeSession = "TILEMERGE"
	UkPreTileSource       = "TILESRC"
	UkPreTileSink         = "TILESINK"
)

func GenUkTileMergeSession() string {
	return siUkTileMergeSession.GenUniqueKey()
}

func GenUkTileSource() string {
	return siUkTileSource.GenUniqueKey()
}

func GenUkTileSink() string {
	return siUkTileSink.GenUniqueKey()
}

var (
	siUkTileMergeSession *unique.SingleGenerator
	siUkTileSource       *unique.SingleGenerator
	siUkTileSink         *unique.SingleGenerator
)

func init() {
	siUkTileMergeSession = unique.NewSingleGenerator(UkPreTileMergeSession)
	siUkTileSource = unique.NewSingleGenerator(UkPreTileSource)
	siUkTileSink = unique.NewSingleGenerator(UkPreTileSink)
}
