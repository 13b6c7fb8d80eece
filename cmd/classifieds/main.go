// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Command classifieds is the entry point for the classifieds marketplace.
// Run "classifieds serve" to start the API; see "classifieds --help" for
// the maintenance commands.
package main

import "classifieds/internal/cli"

func main() {
	cli.Execute()
}
