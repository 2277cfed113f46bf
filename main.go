package main

import (
	"go.uber.org/zap"

	"github.com/pmkol/ringlist/coremain"
	"github.com/pmkol/ringlist/mlog"
)

func main() {
	if err := coremain.Run(); err != nil {
		mlog.L().Fatal("ringlist exited", zap.Error(err))
	}
}
