package main

import (
	"fmt"
	"os"

	"github.com/DimaJoyti/go-coffee/pkg/logger"
)

const serviceName = "order-core-service"

// flatIngredientMappings is the fallback menu-item-to-ingredient mapping
// used when USE_RECIPE_BASED_DEDUCTION is false. Production deployments
// load this from the menu catalog; this core ships an empty map and relies
// on recipe-based deduction by default.
var flatIngredientMappings = map[string]string{}

func main() {
	log := logger.New(serviceName)
	if err := newRootCommand(log).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
