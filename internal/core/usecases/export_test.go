package usecases

import "time"

// SetClock replaces the time source of s.
func (s *VehicleSyncService) SetClock(now func() time.Time) { s.now = now }

// SetRand replaces the random source used for tracker ids.
func (s *VehicleSyncService) SetRand(fn func(max int64) (int64, error)) { s.randInt = fn }

// SetClock replaces the time source used to resolve history periods.
func (s *ViewService) SetClock(now func() time.Time) { s.now = now }
