package trace

// Aggregate computes the transaction verdict from built call trees.
//
// The walk assumes at most one call fails per transaction: it moves right
// over successful siblings, and on the first failed node records its code and
// message, then descends into that node's children looking for a more
// specific cause. The deepest failed node on this path wins.
func Aggregate(roots []*InstructionLog, lines []string) TransactionTrace {
	res := TransactionTrace{
		RootCalls: roots,
		RawLines:  lines,
		IsSuccess: true,
	}
	siblings := roots
	idx := 0
	for idx < len(siblings) {
		current := siblings[idx]
		if current.IsSuccess {
			idx++
			continue
		}
		program := current.ProgramId
		res.IsSuccess = false
		res.ErrorCode = current.ErrorCode
		res.ErrorMessage = current.ErrorMessage
		res.FailedProgram = &program
		siblings = current.Children
		idx = 0
	}
	return res
}

// Process builds and aggregates the log of one transaction.
func Process(lines []string) (TransactionTrace, error) {
	return ProcessLimited(lines, DefaultMaxLines)
}

func ProcessLimited(lines []string, maxLines int) (TransactionTrace, error) {
	roots, err := BuildLimited(lines, maxLines)
	if err != nil {
		return TransactionTrace{}, err
	}
	return Aggregate(roots, lines), nil
}

// ProcessTransaction is Process for a transaction identified by signature.
func ProcessTransaction(signature string, lines []string, maxLines int) (TransactionTrace, error) {
	res, err := ProcessLimited(lines, maxLines)
	if err != nil {
		return res, err
	}
	if signature != "" {
		res.Signature = &signature
	}
	return res, nil
}
