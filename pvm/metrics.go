package pvm

import "github.com/ethereum/go-ethereum/metrics"

var (
	storageLoadMeter = metrics.NewRegisteredCounter("pvm/storage/loads", nil)
	storageSaveMeter = metrics.NewRegisteredCounter("pvm/storage/saves", nil)
	runFailureMeter  = metrics.NewRegisteredCounter("pvm/run/failures", nil)
	runTimer         = metrics.NewRegisteredTimer("pvm/run", nil)
)

// ProfileCounters returns the number of storage loads and saves since the
// last reset. The counters run whether or not metrics reporting is enabled.
func ProfileCounters() (int64, int64) {
	return storageLoadMeter.Snapshot().Count(), storageSaveMeter.Snapshot().Count()
}

// ResetProfileCounters zeros the storage counters.
func ResetProfileCounters() {
	storageLoadMeter.Clear()
	storageSaveMeter.Clear()
}
