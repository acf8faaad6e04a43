// Public domain.

/*
Command mcc computes Matthews correlation coefficient of a model3d cut.

Matthews correlation coefficient is a statistic indicating how well
a classifier works.  Here, we are testing how well a cut on a column of
model3d output, normally the goodness of fit, separates gamma ray showers
from hadron showers.  Compared to similar statistics, MCC produces a
meaningful measure even when the relative number of events in the two
classes is greatly different.

	Usage: mcc [options] <in-class> <out-of-class> [threshold]
	  -above: scores above threshold predict in-class
	  -c=11: column containing score
	  -scan: also report the best threshold
	  -v: display version and copyright

The command line arguments <in-class> and <out-of-class> are files
containing captured output of model3d, one for events known to be gammas
and one for events known to be hadrons.  Command sim can make both; see its
documentation for an example.

Columns are counted from 0 at the event number.  The default column 11 is
the goodness of fit.  Column 9, sigmaT, is another useful score.

The optional threshold argument specifies the cut.  The default is 2,
meaning that a score of 2 or less predicts a gamma.  With -above, a score
greater than the threshold predicts a gamma.  With -scan, mcc also tries
each score as the threshold and reports the one with the highest
coefficient.

Comment lines are skipped.  Lines without a number in the score column,
such as those of rejected events, are counted and otherwise ignored.
*/
package main
