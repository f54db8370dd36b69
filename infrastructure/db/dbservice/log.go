package dbservice

import (
	"github.com/caliconet/calicod/infrastructure/logger"
	"github.com/caliconet/calicod/util/panics"
)

var log = logger.RegisterSubSystem("DBSV")
var spawn = panics.GoroutineWrapperFunc(log)
