// Package ports defines the interfaces between the application core and its
// adapters: the durable record store, the batch sender, the connectivity
// prober, and logging. Implementations live under internal/adapters.
package ports
