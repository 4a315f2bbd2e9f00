package main

import "tokend/internal/tokenctl"

func main() { tokenctl.Main() }
