package core

// Aggregate combines a classification with zero or more scan results into
// one overall severity. Rules are evaluated in a fixed order and the first
// match wins:
//
//  1. any successful scan with severity High  -> High
//  2. classification label is Spam            -> High
//  3. any successful scan with severity Medium -> Medium
//  4. otherwise                               -> Low
//
// Failed scans carry no signal and are skipped entirely.
func Aggregate(classification *ClassificationResult, scans []ScanResult) Severity {
	for _, scan := range scans {
		if scan.Failed() {
			continue
		}
		if scan.Severity == SeverityHigh {
			return SeverityHigh
		}
	}

	if classification != nil && classification.Label == LabelSpam {
		return SeverityHigh
	}

	for _, scan := range scans {
		if scan.Failed() {
			continue
		}
		if scan.Severity == SeverityMedium {
			return SeverityMedium
		}
	}

	return SeverityLow
}
