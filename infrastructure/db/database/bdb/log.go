package bdb

import (
	"github.com/caliconet/calicod/infrastructure/logger"
)

var log = logger.RegisterSubSystem("BODB")
