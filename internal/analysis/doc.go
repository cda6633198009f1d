// Package analysis characterizes recorded flights: the spectrum of an
// attitude signal, to spot loop oscillation, and step-response settling.
//
//	spec, err := analysis.PowerSpectrum(roll, 50)
//	if err == nil {
//	    f, _ := spec.Dominant()
//	    // f is the strongest oscillation in Hz
//	}
package analysis
