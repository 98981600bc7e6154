package raster

import "github.com/geodata/ctb-tile/internal/ctberr"

// WarpWithOverviewRetry calls src.Warp(spec), and on a Window-kind failure
// (taken as a probable transform overflow at an extreme zoom ratio per
// spec.md §4.2.1) pushes one more synthetic overview onto src and retries,
// up to maxRetries times, so each retry reads a coarser overview than the
// last. Every overview pushed is popped again once this call returns, so
// each worker leaves the shared source's overview stack as it found it.
func WarpWithOverviewRetry(src Source, spec WarpSpec, maxRetries int) (*Window, error) {
	win, err := src.Warp(spec)
	if err == nil {
		return win, nil
	}
	if !ctberr.IsKind(err, ctberr.Window) {
		return nil, err
	}

	pushed := 0
	defer func() {
		for ; pushed > 0; pushed-- {
			src.PopOverview()
		}
	}()
	for attempt := 0; attempt < maxRetries; attempt++ {
		if pushErr := src.PushOverview(); pushErr != nil {
			return nil, err
		}
		pushed++
		win, retryErr := src.Warp(spec)
		if retryErr == nil {
			return win, nil
		}
		err = retryErr
		if !ctberr.IsKind(err, ctberr.Window) {
			return nil, err
		}
	}
	return nil, err
}
