// Copyright 2025 The Tarifa Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/jcodagnone/tarifa/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
