package mdb

import (
	"github.com/caliconet/calicod/infrastructure/logger"
)

var log = logger.RegisterSubSystem("LMDB")
