// Healthimpact classifies heavy-metal concentrations in water samples into
// health risk tiers.
//
// It serves an HTTP API that evaluates samples against a versioned rule
// set, and ships the same engine as command-line tools:
//   - evaluate one sample or a batch of samples from a JSON file
//   - validate, list and dump health rule documents
//   - convert readings between units
//   - manage the element chemistry catalog
//
// Usage:
//
//	# Start server with default configuration
//	healthimpact run
//
//	# Start with custom configuration file
//	healthimpact run --config /etc/healthimpact/config.yaml
//
//	# Evaluate samples without a server
//	healthimpact evaluate --file samples.json --format json
//
//	# Check a rule document before deploying it
//	healthimpact rules validate --file rules.yaml
package main

func main() {
	Execute()
}
