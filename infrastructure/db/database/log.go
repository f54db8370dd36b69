package database

import (
	"github.com/caliconet/calicod/infrastructure/logger"
	"github.com/caliconet/calicod/util/panics"
)

var log = logger.RegisterSubSystem("KVDB")
var spawn = panics.GoroutineWrapperFunc(log)
