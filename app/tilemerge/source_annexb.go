// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package main

import (
	"os"

	"github.com/q191201771/tilemerge/pkg/base"
	"github.com/q191201771/tilemerge/pkg/h2645"
)

// OpenAnnexbSource 读取h265裸流文件，按fps生成时间戳
func OpenAnnexbSource(path string, fps int) (*TileSource, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return newAnnexbSource(path, b, fps)
}

func newAnnexbSource(path string, b []byte, fps int) (*TileSource, error) {
	groups := splitAccessUnits(h2645.SplitNaluAnnexb(b))
	aus := make([]accessUnit, len(groups))
	duration := int64(90000 / fps)
	for i, nalus := range groups {
		aus[i] = accessUnit{
			dts:   int64(i) * duration,
			pts:   int64(i) * duration,
			nalus: nalus,
		}
	}

	s := &TileSource{
		uniqueKey: base.GenUkTileSource(),
		path:      path,
	}
	if err := s.init(aus); err != nil {
		return nil, err
	}
	return s, nil
}
