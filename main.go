// The Licensed Work is (c) 2024 Fintechain
// SPDX-License-Identifier: LGPL-3.0-only

package main

import (
	"github.com/Fintechain/gfs-core/cli"
)

func main() {
	cli.Execute()
}
