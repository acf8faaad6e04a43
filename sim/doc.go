// Public domain.

/*
Command sim writes a file of synthetic events for model3d.

Showers are generated by the model3d photon-density model itself, so a fit
of a simulated event recovers its truth up to noise.  Sim is a test-data
generator, not an air shower or detector simulation.

	Usage:
	  sim [options]       Write synthetic events.
	  sim -v              Display version and copyright.

The detector is a ring of -tel telescopes of radius -r meters, each with a
square camera of (2·half+1)² pixels at -spacing degrees.  All telescopes
point at -el, -az.  Each shower comes from the pointing direction, with a
core uniform within 150 m of the array center, height of maximum between
8 and 12 km and about 3.3 million Cherenkov photons.  The transverse width
is 8 to 15 m, or 30 to 60 m with -hadron, which puts events outside the
gamma band of the model3d fit.

With -noise, pixel signals are Poisson photo-electron counts smeared by a
1 pe pedestal.  Images are cleaned at 5 and 2.5 pe.  Hillas parameters are
computed from the cleaned images, and a geometric reconstruction is made by
smearing the true direction and core by -dsmear and -csmear.  Model3d
estimates its start values from these.

The output file records the detector, the command line as a comment, and
the truth of each event.  The same -seed always gives the same file,
apart from the creation time in the header.

To compare gamma and hadron separation with command mcc:

	sim -o gamma.evt
	sim -o hadron.evt -hadron -seed 2
	model3d gamma.evt > gamma.out
	model3d hadron.evt > hadron.out
	mcc gamma.out hadron.out
*/
package main
