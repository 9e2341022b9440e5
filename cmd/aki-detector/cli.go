// Copyright (C) 2024 mflvn.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import "flag"

var (
	flagWipeLog, flagGops, flagVersion, flagLogDateTime bool
	flagHistoryDir, flagLogLevel                        string
)

func cliInit() {
	flag.BoolVar(&flagWipeLog, "wipe-log", false, "Truncate the message log instead of replaying it (all recovered state will be lost!)")
	flag.BoolVar(&flagGops, "gops", false, "Listen via github.com/google/gops/agent (for debugging)")
	flag.BoolVar(&flagVersion, "version", false, "Show version information and exit")
	flag.BoolVar(&flagLogDateTime, "logdate", false, "Set this flag to add date and time to log messages")
	flag.StringVar(&flagHistoryDir, "history-dir", "", "Specify alternative path to the history `CSV` file")
	flag.StringVar(&flagLogLevel, "loglevel", "info", "Sets the logging level: `[debug, info (default), warn, err, crit]`")
	flag.Parse()
}
