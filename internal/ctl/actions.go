package ctl

// Indirection layer to allow stubbing in tests

var (
	fnDeploy    = deployApp
	fnInvoke    = invokeApp
	fnSecretSet = secretSet
	fnSecretRm  = secretRemove
	fnDownload  = downloadWeights
	fnStatus    = appStatus
	fnStop      = stopApp
	fnRun       = runExample
)
