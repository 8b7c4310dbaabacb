package domain

// Host lifecycle tasks. Pipeline tasks attach to them through dependency
// edges so that running a lifecycle task triggers the pipeline.
const (
	TaskClean    = "clean"
	TaskAssemble = "assemble"
	TaskCheck    = "check"
	TaskPublish  = "publish"
)

// LifecycleTasks lists the host lifecycle tasks in their conventional order.
var LifecycleTasks = []string{TaskClean, TaskAssemble, TaskCheck, TaskPublish}

// Task groups.
const (
	GroupLifecycle = "Lifecycle"
	GroupBuild     = "Dart/Build"
	GroupPublish   = "Dart/Publish"
)

// Pipeline task names.
const (
	TaskCleanPackageIndex   = "cleanPackageIndex"
	TaskResolveDependencies = "resolveDependencies"
	TaskRunTests            = "runTests"
	TaskStagePublication    = "stagePublication"
	TaskPublishToRegistry   = "publishToRegistry"
	TaskActivateLocally     = "activateLocally"
	TaskGenerateDocs        = "generateDocs"
	TaskIntegrationTest     = "integrationTest"
	TaskGenerateCode        = "generateCode"
)

// Edge relations between tasks.
const (
	RelationDependsOn    = "dependsOn"
	RelationMustRunAfter = "mustRunAfter"
	RelationFinalizedBy  = "finalizedBy"
)
