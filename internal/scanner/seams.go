package scanner

import "os"

var osStat = os.Stat
