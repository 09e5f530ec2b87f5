package main

import (
	"github.com/ProtonMail/localstore/benchmarks/store_bench/bench"
	_ "github.com/ProtonMail/localstore/benchmarks/store_bench/store_benchmarks"
	"github.com/sirupsen/logrus"
)

func main() {
	logrus.SetLevel(logrus.ErrorLevel)
	bench.RunMain()
}
