// Public domain.

/*
Command model3d reconstructs air showers seen by an array of imaging
Cherenkov telescopes by fitting a 3D model of the shower to the pixel
signals of all telescopes at once.

Contents

	Program overview
	Command line usage
	Configuration
	File formats
	Algorithm outline

Program overview

The shower is modeled as a 3D Gaussian photosphere of Cherenkov light
emitters along the shower axis.  Eight parameters describe it:  the
elevation and azimuth of the axis, the core position on the ground, the
height of shower maximum, the longitudinal and transverse widths of the
emission, and the log of the number of Cherenkov photons.  For a trial
shower the model predicts the light in every pixel of every camera.  A
likelihood compares the prediction to the measured signal, allowing for
pedestal noise, Poisson statistics and single photo-electron fluctuations.
Model3d finds the parameters that maximize the likelihood.

The transverse width of the fit is a gamma/hadron discriminant.  Gamma ray
showers are narrow.  Hadron showers are wide and irregular and fit the
model poorly, which the goodness of fit measures.  Only events whose start
values fall in the gamma band of transverse width are fit at all.

Sample run:

	sim -n 3 -o run.evt
	model3d run.evt

gives output like

	# model3d version 0.1 Go source.
	# run 5f0b7e1c-... solver twostage, 4 telescopes, file created 2026-...
	# sim -n 3 -o run.evt
	#  evt G C      el       az    xcore    ycore     smax  sigmaL sigmaT  logNc goodness    xoff    yoff  status
	     1 Y Y  70.012  179.961    -42.8     97.3     9838    3208   11.6 14.883    0.412   0.004  -0.010  converged, edm 2.1e-05
	     ...

G is Y for events that passed the quality cuts, C is Y for events whose
fit converged.  Azimuth is from north through east, like the pointing.
Xoff and yoff are the fit direction relative to the array pointing in
camera degrees.

Command line usage

	Usage: model3d [options] <eventfile>  fit events in file
	       model3d [options] -            fit events from stdin
	       model3d -h                     display help and quick reference
	       model3d -v                     display version and copyright

	Options:
	       -c <config-file>
	       -solver twostage|lm
	       -hist <png-file>   write goodness histogram of converged events
	       -radec             add equatorial direction
	       -debug             trace fit states on stderr

With -radec the fit direction is also given as apparent right ascension
and declination for the event time, seen from the configured site.  A count
of events, good events and converged fits is logged to stderr at the end of
a run.

Configuration

Without -c, built-in defaults are used.  A config file is YAML.  Settings
it does not mention keep their defaults, so a file typically holds only a
few lines:

	fit:
	  solver: lm
	  max_start_goodness: 50
	site:
	  latitude: 28.76
	  longitude: -17.89
	debug: true

The sections are

	physics   detector defaults, noise model, start value scaling,
	          atmosphere
	camera    y_sign, offset_y_sign:  sign of camera y in the sky basis
	fit       solver, quality cuts, gamma band, bounds, derivative steps,
	          solver limits, simplex first stage
	site      latitude and longitude (east positive) for -radec
	debug     trace fit states
	display   keep the expected signal of every pixel

Solver twostage maps each bounded parameter to an unbounded one, optionally
runs a Nelder-Mead simplex on height, transverse width and photon yield,
then minimizes with BFGS.  Solver lm minimizes a least squares form of the
same likelihood with bounded Levenberg-Marquardt.  Both report 1σ errors.

File formats

An event file is a gob stream, written by command sim or by any program
using package m3evt.  It starts with a header holding the detector:
telescope positions, mirror areas, pixel diameters and pixel camera
coordinates.  Each event then holds the pointing, pixel signals, pedestal
widths, image and border cleaning flags and Hillas parameters per
telescope, and a geometric reconstruction of direction and core.  Events
from sim also hold the true parameters.

Algorithm outline

1.  The pointing of the telescopes is averaged.  A sky basis is built with
Z along the pointing, and the line of sight of every pixel is computed.
Events with fewer than two images, inconsistent pointing or a core beyond
the core cut are rejected.

2.  Start values come from the geometric reconstruction and the Hillas
parameters.  The height of maximum is triangulated from each pair of
images.  Widths come from image length and width at that height, and the
photon yield from the summed image size.

3.  Pixels passing image or border cleaning are used.  The goodness of the
start values is computed, and events above a limit are rejected.  Events
whose start transverse width is outside the gamma band are passed through
without a fit.

4.  The solver minimizes -2 ln L within bounds about the start.  A fit
that does not converge reports the start values.

5.  The goodness of the fit, the fit direction as a camera offset, the
slant depth of maximum in g/cm² and a reduced width scaled by air density
are published with the parameters.
*/
package main
